package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// HeaderCarrier adapts kafka headers to the otel propagation API.
type HeaderCarrier []kafka.Header

var _ propagation.TextMapCarrier = (*HeaderCarrier)(nil)

func (c *HeaderCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *HeaderCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *HeaderCarrier) Keys() []string {
	out := make([]string, 0, len(*c))
	for _, h := range *c {
		out = append(out, h.Key)
	}
	return out
}

func InjectTrace(ctx context.Context, headers []kafka.Header) []kafka.Header {
	c := HeaderCarrier(headers)
	otel.GetTextMapPropagator().Inject(ctx, &c)
	return c
}

func ExtractTrace(ctx context.Context, headers []kafka.Header) context.Context {
	c := HeaderCarrier(headers)
	return otel.GetTextMapPropagator().Extract(ctx, &c)
}
