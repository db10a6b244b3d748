package logger

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

// ContextWithLogger stores a request-scoped logger in the context. The HTTP
// middleware uses this to carry the request_id field into handlers.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request-scoped logger, or a no-op logger when the
// context carries none (background jobs, tests).
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
