package tracing

import (
	"context"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// LogExporter writes finished spans to the logger at debug level
type LogExporter struct {
	log ectologger.Logger
}

// NewLogExporter creates a span exporter backed by the logger
func NewLogExporter(log ectologger.Logger) *LogExporter {
	return &LogExporter{log: log}
}

func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		fields := map[string]any{
			"span":        s.Name(),
			"trace_id":    s.SpanContext().TraceID().String(),
			"span_id":     s.SpanContext().SpanID().String(),
			"duration_ms": s.EndTime().Sub(s.StartTime()).Milliseconds(),
		}
		for _, a := range s.Attributes() {
			fields[string(a.Key)] = a.Value.Emit()
		}
		e.log.WithContext(ctx).WithFields(fields).Debug("span finished")
	}
	return nil
}

func (e *LogExporter) Shutdown(ctx context.Context) error {
	return nil
}

// Setup installs a tracer provider exporting to the logger and returns its
// shutdown function
func Setup(appName string, log ectologger.Logger) func(context.Context) error {
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(NewLogExporter(log)))
	otel.SetTracerProvider(provider)
	SetTracer(provider.Tracer(appName))
	return func(ctx context.Context) error {
		SetTracer(nil)
		return provider.Shutdown(ctx)
	}
}
