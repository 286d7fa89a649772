package xslog

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request- or event-scoped logger, falling back to slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// WithEvent scopes the context logger to one provider event, so every line
// logged while relaying it carries the event group. Empty fields are omitted.
func WithEvent(ctx context.Context, id, eventType, topic string) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(EventGroup(id, eventType, topic)))
}
