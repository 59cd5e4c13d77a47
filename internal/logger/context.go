package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

// toContext returns a child context carrying the provided logger.
func toContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// fromContext returns the logger stored in ctx or the global logger.
func fromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*zap.SugaredLogger); ok && l != nil {
			return l
		}
	}

	return global
}

// WithName appends a name segment to the context logger (e.g. "flow-monitor.engine").
func WithName(ctx context.Context, name string) context.Context {
	return toContext(ctx, fromContext(ctx).Named(name))
}

// WithKV attaches key-value pairs to every message written through the returned context.
func WithKV(ctx context.Context, kvs ...any) context.Context {
	return toContext(ctx, fromContext(ctx).With(kvs...))
}
