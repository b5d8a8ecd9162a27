package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tecnolua/ClubePharma/internal/logger"
)

// Producer buffers messages in an inbox and writes them from one goroutine.
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	once    sync.Once
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start drains the inbox until Close. Writes use their own timeout so a
// cancelled request context never drops an accepted message.
func (p *Producer) Start(ctx context.Context) {
	log := logger.Ctx(ctx).With().Str("topic", p.w.Topic).Logger()
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			wctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.w.WriteMessages(wctx, m); err != nil {
				log.Error().Err(err).Str("key", string(m.Key)).Msg("kafka write failed")
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			log.Warn().Err(err).Msg("kafka writer close")
		}
	}()
}

// Publish enqueues a message. It blocks while the inbox is full unless ctx
// ends first.
func (p *Producer) Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	select {
	case p.inbox <- kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages; the loop flushes what is queued.
func (p *Producer) Close() { p.once.Do(func() { close(p.inbox) }) }

// WaitClosed blocks until the flush finished.
func (p *Producer) WaitClosed() { <-p.closeCh }
