package kafka

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
)

// publisher is the part of Producer the emitter needs.
type publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error
}

// Emitter wraps payloads in an Envelope and routes them to the producer
// registered for the topic.
type Emitter struct {
	service string
	topics  map[string]publisher
	now     func() time.Time
}

func NewEmitter(service string) *Emitter {
	return &Emitter{service: service, topics: map[string]publisher{}, now: time.Now}
}

func (e *Emitter) Register(topic string, p publisher) *Emitter {
	e.topics[topic] = p
	return e
}

func (e *Emitter) Emit(ctx context.Context, topic, eventType, key string, payload any) error {
	p, ok := e.topics[topic]
	if !ok {
		return errors.Errorf("no producer for topic %s", topic)
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    e.now().UTC(),
		Producer:      e.service,
		CorrelationID: key,
		Payload:       MustMarshal(payload),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}
	headers := InjectTrace(ctx, []kafka.Header{
		{Key: HeaderEventType, Value: []byte(eventType)},
		{Key: HeaderEventVersion, Value: []byte(strconv.Itoa(env.EventVersion))},
	})
	return p.Publish(ctx, []byte(key), MustMarshal(env), headers...)
}
