package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitWithoutExporter(t *testing.T) {
	shutdown, err := Init("clubepharma-test", "test", "")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	if !span.SpanContext().IsValid() {
		t.Fatal("sdk provider should produce valid span contexts")
	}
	if len(otel.GetTextMapPropagator().Fields()) == 0 {
		t.Fatal("propagator not installed")
	}
}
