package api

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type userIDKey struct{}

// withUserID marks ctx as belonging to a signed-in user so every log record
// written under it names that user.
func withUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// RequestHandler adds the trace, span and signed-in user of the record's
// context to every record it passes on.
type RequestHandler struct {
	next slog.Handler
}

func NewRequestHandler(next slog.Handler) *RequestHandler {
	return &RequestHandler{next: next}
}

func (h *RequestHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RequestHandler) Handle(ctx context.Context, r slog.Record) error {
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if userID, ok := ctx.Value(userIDKey{}).(int64); ok {
		r.AddAttrs(slog.Int64("user_id", userID))
	}

	return h.next.Handle(ctx, r)
}

func (h *RequestHandler) WithGroup(name string) slog.Handler {
	return NewRequestHandler(h.next.WithGroup(name))
}

func (h *RequestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewRequestHandler(h.next.WithAttrs(attrs))
}

// NewLogger builds the JSON logger used by every binary, tagged with the
// service name.
func NewLogger(w io.Writer, serviceName string, level slog.Level) *slog.Logger {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewRequestHandler(jsonHandler)).With(slog.String("service", serviceName))
}
