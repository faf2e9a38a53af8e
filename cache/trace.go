package cache

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// startGenerateSpan opens a span around a generator invocation, the one
// slow call in the hot path. With no tracer configured this is a noop span.
func (c *Cache) startGenerateSpan(ctx context.Context, prefix, key string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "cache.generate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cache.prefix", prefix),
			attribute.String("cache.key", key),
		),
	)
}

func endGenerateSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
