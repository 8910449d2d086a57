package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer mirrors runtime/agent/telemetry/clue.go's ClueTracer: a thin
// wrapper over the global OTEL TracerProvider, configured (or left as the
// default no-op) by the process's main package.
var tracer = otel.Tracer("github.com/opencanvas/canvasd")

// StartSpan starts a span named name and returns the derived context plus a
// finish function that records err (if any) and ends the span.
func StartSpan(ctx context.Context, name string) (context.Context, func(err error)) {
	var span trace.Span
	ctx, span = tracer.Start(ctx, name)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
