package metrics

import (
	"context"

	tracesdk "go.opentelemetry.io/otel/sdk/trace"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/pkg/logger"
)

// LogExporter writes finished spans to a logger at debug level, so
// `--log-level debug` shows the timing of every backend call.
type LogExporter struct {
	log logger.Logger
}

// NewLogExporter creates a LogExporter.
func NewLogExporter(log logger.Logger) *LogExporter {
	return &LogExporter{log: log}
}

// ExportSpans implements tracesdk.SpanExporter.
func (e *LogExporter) ExportSpans(_ context.Context, spans []tracesdk.ReadOnlySpan) error {
	for _, s := range spans {
		fields := []logger.Field{
			logger.String("span", s.Name()),
			logger.String("trace_id", s.SpanContext().TraceID().String()),
			logger.Duration("duration", s.EndTime().Sub(s.StartTime())),
			logger.String("status", s.Status().Code.String()),
		}
		for _, attr := range s.Attributes() {
			if attr.Key == "http.status_code" {
				fields = append(fields, logger.Int64("http_status", attr.Value.AsInt64()))
			}
		}
		e.log.Debug("span finished", fields...)
	}
	return nil
}

// Shutdown implements tracesdk.SpanExporter.
func (e *LogExporter) Shutdown(context.Context) error {
	return nil
}
