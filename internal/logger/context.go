package logger

import (
	"context"

	"go.uber.org/zap"
)

type sinkKey struct{}

// ContextWithSink stores the run's diagnostic sink in the context.
func ContextWithSink(ctx context.Context, s *Sink) context.Context {
	return context.WithValue(ctx, sinkKey{}, s)
}

// SinkFromContext returns the stored sink, or a NopSink.
func SinkFromContext(ctx context.Context) *Sink {
	if s, ok := ctx.Value(sinkKey{}).(*Sink); ok && s != nil {
		return s
	}
	return NopSink()
}

// FromContext returns the structured logger of the stored sink.
// Returns zap.NewNop() if none was stored, so transports can log unconditionally.
func FromContext(ctx context.Context) *zap.Logger {
	return SinkFromContext(ctx).Logger()
}
