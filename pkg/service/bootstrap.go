package service

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Combine-Capital/cqlog/pkg/auth"
	"github.com/Combine-Capital/cqlog/pkg/binder"
	"github.com/Combine-Capital/cqlog/pkg/config"
	"github.com/Combine-Capital/cqlog/pkg/correlation"
	"github.com/Combine-Capital/cqlog/pkg/errors"
	"github.com/Combine-Capital/cqlog/pkg/health"
	"github.com/Combine-Capital/cqlog/pkg/logging"
	"github.com/Combine-Capital/cqlog/pkg/metrics"
	"google.golang.org/grpc"
)

// Bootstrap holds the components built from configuration.
type Bootstrap struct {
	Config     *config.Config
	Logger     *logging.Logger
	Store      *correlation.Store
	Binder     *binder.Binder
	Metrics    *metrics.Registry
	Collectors *metrics.Collectors
	Health     *health.Health

	// JWT is nil when authentication is not configured.
	JWT *auth.JWTConfig

	cleanup *CleanupHandler
}

// BootstrapOption is a functional option for configuring bootstrap behavior.
type BootstrapOption func(*bootstrapConfig)

type bootstrapConfig struct {
	skipMetrics bool
	skipAuth    bool
	logWriter   io.Writer
}

// WithoutMetrics disables metrics even when the configuration enables them.
func WithoutMetrics() BootstrapOption {
	return func(c *bootstrapConfig) {
		c.skipMetrics = true
	}
}

// WithoutAuth disables authentication even when the configuration enables it.
func WithoutAuth() BootstrapOption {
	return func(c *bootstrapConfig) {
		c.skipAuth = true
	}
}

// WithLogWriter sends JSON log records to w instead of the configured sinks.
// This is mostly useful for testing.
func WithLogWriter(w io.Writer) BootstrapOption {
	return func(c *bootstrapConfig) {
		c.logWriter = w
	}
}

// NewBootstrap builds the logger, the correlation store, the binder, metrics
// and authentication from cfg. The store becomes correlation.Default() so the
// package-level helpers and the log hook see the same scopes.
func NewBootstrap(ctx context.Context, cfg *config.Config, opts ...BootstrapOption) (*Bootstrap, error) {
	bc := &bootstrapConfig{}
	for _, opt := range opts {
		opt(bc)
	}

	b := &Bootstrap{
		Config:  cfg,
		cleanup: NewCleanupHandler(),
	}

	if bc.logWriter != nil {
		b.Logger = logging.NewWithWriter(bc.logWriter, cfg.Log)
	} else {
		logger, err := logging.New(cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		b.Logger = logger
		b.cleanup.Register(func(context.Context) error { return logger.Close() })
	}

	store, err := correlation.NewStore(correlation.Options{MaxValueLength: cfg.Correlation.MaxValueLength})
	if err != nil {
		_ = b.Cleanup(ctx)
		return nil, fmt.Errorf("failed to initialize correlation store: %w", err)
	}
	correlation.SetDefault(store)
	b.Store = store

	binderOpts, err := binder.OptionsFromConfig(cfg.Correlation, cfg.Server)
	if err != nil {
		_ = b.Cleanup(ctx)
		return nil, fmt.Errorf("failed to initialize binder: %w", err)
	}
	binderOpts.Store = store

	if !bc.skipMetrics && cfg.Metrics.Enabled {
		b.Metrics = metrics.New(cfg.Metrics)
		b.Collectors, err = metrics.NewCollectors(b.Metrics, store)
		if err != nil {
			_ = b.Cleanup(ctx)
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		binderOpts.Observer = b.Collectors

		b.Logger.Info().Str("path", cfg.Metrics.Path).Msg("metrics initialized")
	}

	b.Binder = binder.New(binderOpts)

	b.Health = health.New()
	b.Health.RegisterChecker("correlation_store", health.ScopeLimitChecker(store, cfg.Correlation.MaxActiveScopes))
	if cfg.Log.Dir != "" && bc.logWriter == nil {
		b.Health.RegisterChecker("log_sink", health.LogDirChecker(cfg.Log.Dir))
	}

	if !bc.skipAuth && cfg.Auth.Enabled() {
		jwtCfg, err := auth.JWTConfigFromConfig(cfg.Auth)
		if err != nil {
			_ = b.Cleanup(ctx)
			return nil, fmt.Errorf("failed to initialize auth: %w", err)
		}
		jwtCfg.Binder = b.Binder
		b.JWT = &jwtCfg
	}

	b.Logger.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("env", cfg.Service.Env).
		Msg("service starting")

	return b, nil
}

// HTTPHandler wraps h with the request middleware. The binder runs first so
// that access logging, metrics, panic recovery and authentication all run
// inside the request's correlation scope. The health probes and, with metrics
// enabled, the metrics path are served outside the chain.
func (b *Bootstrap) HTTPHandler(h http.Handler) http.Handler {
	if b.JWT != nil {
		h = auth.JWTMiddleware(*b.JWT)(h)
	}
	h = errors.RecoveryMiddleware(logging.RecoveryFunc(b.Logger))(h)
	if b.Collectors != nil {
		h = b.Collectors.HTTPMiddleware()(h)
	}
	h = logging.AccessLogMiddleware(b.Logger)(h)
	h = b.Binder.HTTPMiddleware()(h)

	mux := http.NewServeMux()
	mux.Handle("/health/live", b.Health.LivenessHandler())
	mux.Handle("/health/ready", b.Health.ReadinessHandler())
	if b.Metrics != nil {
		mux.Handle(b.Config.Metrics.Path, b.Metrics.Handler())
	}
	mux.Handle("/", h)
	return mux
}

// GRPCServerOptions returns the interceptor chains matching HTTPHandler.
func (b *Bootstrap) GRPCServerOptions() []grpc.ServerOption {
	unary := []grpc.UnaryServerInterceptor{
		b.Binder.UnaryServerInterceptor(),
		logging.UnaryServerInterceptor(b.Logger),
	}
	stream := []grpc.StreamServerInterceptor{
		b.Binder.StreamServerInterceptor(),
		logging.StreamServerInterceptor(b.Logger),
	}
	if b.Collectors != nil {
		unary = append(unary, b.Collectors.UnaryServerInterceptor())
		stream = append(stream, b.Collectors.StreamServerInterceptor())
	}
	unary = append(unary, errors.UnaryServerInterceptor(logging.RecoveryFunc(b.Logger)))
	if b.JWT != nil {
		unary = append(unary, auth.JWTUnaryInterceptor(*b.JWT))
		stream = append(stream, auth.JWTStreamInterceptor(*b.JWT))
	}

	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	}
}

// Cleanup releases the components in reverse order of creation.
// Always defer this after creating Bootstrap.
func (b *Bootstrap) Cleanup(ctx context.Context) error {
	if b.Logger != nil {
		b.Logger.Info().Msg("cleanup started")
	}
	return b.cleanup.Execute(ctx)
}

// AddCleanup adds a cleanup function to be executed during Cleanup.
// Cleanup functions are executed in reverse order (LIFO).
func (b *Bootstrap) AddCleanup(fn CleanupFunc) {
	b.cleanup.Register(fn)
}
