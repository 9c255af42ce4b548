package logging

import (
	"context"
	"os"
	"sync"

	"github.com/Combine-Capital/cqlog/pkg/config"
	"github.com/rs/zerolog"
)

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const loggerContextKey = contextKey("cqlog.logger")

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext extracts a logger from the context.
// If no logger is found, it returns a default JSON logger on stdout.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	defaultOnce.Do(func() {
		defaultLogger = NewWithWriter(os.Stdout, defaultLogConfig())
	})
	return defaultLogger
}

// defaultLogConfig returns a default log configuration.
func defaultLogConfig() config.LogConfig {
	return config.LogConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

// Ctx returns the context's logger bound to ctx, so every event it creates
// carries the correlation fields of ctx.
//
//	logging.Ctx(ctx).Info().Str("order_id", id).Msg("order created")
func Ctx(ctx context.Context) *zerolog.Logger {
	zlog := FromContext(ctx).zlog.With().Ctx(ctx).Logger()
	return &zlog
}
