package telemetry

import (
	"context"

	"github.com/flemzord/hostjob/internal/job"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for hostjob tracing.
const tracerName = "github.com/flemzord/hostjob"

// Trace wraps exec so that every execution runs inside a span. A nil tracer
// uses the global TracerProvider, which is a no-op until one is installed.
// The executor's error is returned unchanged.
func Trace(name string, exec job.Executor, tracer trace.Tracer) job.Executor {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return job.ExecutorFunc(func(ctx context.Context) error {
		ctx, span := tracer.Start(ctx, "hostjob.job.execute",
			trace.WithAttributes(attribute.String("hostjob.job.name", name)),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := exec.Execute(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	})
}
