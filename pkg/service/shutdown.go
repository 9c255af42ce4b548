package service

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Combine-Capital/cqlog/pkg/logging"
)

// ShutdownConfig configures graceful shutdown behavior.
type ShutdownConfig struct {
	// Timeout is the maximum time to wait for graceful shutdown.
	Timeout time.Duration

	// Signals is the list of OS signals that trigger shutdown.
	// If empty, defaults to SIGINT and SIGTERM.
	Signals []os.Signal
}

// DefaultShutdownConfig returns the default shutdown configuration.
func DefaultShutdownConfig() ShutdownConfig {
	return ShutdownConfig{
		Timeout: 30 * time.Second,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// WaitForShutdown blocks until a shutdown signal is received or ctx is done,
// then stops the provided services in order. A service that fails to stop is
// logged and shutdown continues with the rest. logger may be nil.
func WaitForShutdown(ctx context.Context, logger *logging.Logger, services ...Service) {
	WaitForShutdownWithConfig(ctx, DefaultShutdownConfig(), logger, services...)
}

// WaitForShutdownWithConfig is like WaitForShutdown but accepts custom shutdown configuration.
func WaitForShutdownWithConfig(ctx context.Context, cfg ShutdownConfig, logger *logging.Logger, services ...Service) {
	signals := cfg.Signals
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	sigCtx, stop := signal.NotifyContext(ctx, signals...)
	<-sigCtx.Done()
	stop()

	if logger != nil {
		logger.Info().Msg("initiating graceful shutdown")
	}

	// ctx may already be cancelled; shutdown gets its own deadline
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Timeout)
	defer cancel()

	for _, svc := range services {
		err := svc.Stop(shutdownCtx)
		if logger == nil {
			continue
		}
		if err != nil {
			logger.Error().Err(err).Str("service", svc.Name()).Msg("failed to stop service")
		} else {
			logger.Info().Str("service", svc.Name()).Msg("service stopped")
		}
	}
}

// CleanupFunc represents a cleanup function to be executed during shutdown.
type CleanupFunc func(context.Context) error

// CleanupHandler manages cleanup functions that should be executed during shutdown.
// Cleanup functions are executed in LIFO order (last registered, first executed).
type CleanupHandler struct {
	cleanups []CleanupFunc
}

// NewCleanupHandler creates a new cleanup handler.
func NewCleanupHandler() *CleanupHandler {
	return &CleanupHandler{}
}

// Register adds a cleanup function to be executed during shutdown.
func (h *CleanupHandler) Register(fn CleanupFunc) {
	h.cleanups = append(h.cleanups, fn)
}

// Execute runs all registered cleanup functions in reverse order (LIFO).
// It runs every function even if some fail and returns the first error.
func (h *CleanupHandler) Execute(ctx context.Context) error {
	var firstErr error

	for i := len(h.cleanups) - 1; i >= 0; i-- {
		if err := h.cleanups[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
