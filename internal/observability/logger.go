// Package observability provides the structured logger with OpenTelemetry
// trace correlation, the named tracer, and the prometheus metrics the
// orchestrator records.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrMode    = "mode"

	serviceName = "sapforensics"
	tracerName  = "sapforensics"
)

// Log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Tracer returns the named tracer from the global provider. Without an
// installed provider this is a no-op tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// ParseLevel maps a config level string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the service logger: a text or JSON handler at the given
// level, wrapped so every record carries trace correlation and service
// metadata. mode is the extraction mode the run operates in.
func NewLogger(w io.Writer, level slog.Level, format, mode string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var inner slog.Handler
	if format == FormatJSON {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}

	return slog.New(NewTracingHandler(inner, mode))
}

// TracingHandler is an slog.Handler that injects OpenTelemetry trace context
// (trace_id, span_id) and service metadata into every record. Service
// attributes are pre-attached at construction so they stay at the top level
// when groups are used.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps a handler with trace injection and service
// metadata.
func NewTracingHandler(inner slog.Handler, mode string) *TracingHandler {
	attrs := []slog.Attr{slog.String(attrService, serviceName)}

	if mode != "" {
		attrs = append(attrs, slog.String(attrMode, mode))
	}

	return &TracingHandler{inner: inner.WithAttrs(attrs)}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds trace context attributes from the span context, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	err := th.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs returns a new TracingHandler with additional attributes.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup returns a new TracingHandler with a group prefix.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}
