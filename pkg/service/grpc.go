package service

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Combine-Capital/cqlog/pkg/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

// GRPCService implements the Service interface for gRPC servers.
// It manages the lifecycle of a gRPC server with graceful shutdown.
type GRPCService struct {
	name             string
	addr             string
	server           *grpc.Server
	serverOpts       []grpc.ServerOption
	registerFunc     func(*grpc.Server)
	logger           *logging.Logger
	shutdownTimeout  time.Duration
	enableReflection bool
	mu               sync.Mutex
	started          bool
	listener         net.Listener
}

// GRPCServiceOption is a functional option for configuring a GRPCService.
type GRPCServiceOption func(*GRPCService)

// WithGRPCShutdownTimeout sets the graceful shutdown timeout for the gRPC server.
func WithGRPCShutdownTimeout(timeout time.Duration) GRPCServiceOption {
	return func(s *GRPCService) {
		s.shutdownTimeout = timeout
	}
}

// WithReflection enables gRPC reflection for the server.
// This allows tools like grpcurl to introspect the service.
func WithReflection(enable bool) GRPCServiceOption {
	return func(s *GRPCService) {
		s.enableReflection = enable
	}
}

// WithServerOptions passes options, typically Bootstrap.GRPCServerOptions,
// to the server created by Start.
func WithServerOptions(opts ...grpc.ServerOption) GRPCServiceOption {
	return func(s *GRPCService) {
		s.serverOpts = append(s.serverOpts, opts...)
	}
}

// WithGRPCLogger logs lifecycle events and server errors to logger.
func WithGRPCLogger(logger *logging.Logger) GRPCServiceOption {
	return func(s *GRPCService) {
		s.logger = logger
	}
}

// NewGRPCService creates a new gRPC service listening on addr.
// The registerFunc is called with the gRPC server to register service implementations.
//
// Example:
//
//	svc := service.NewGRPCService("grpc-server", ":9090",
//	    func(s *grpc.Server) {
//	        pb.RegisterOrderServiceServer(s, &orderServer{})
//	    },
//	    service.WithServerOptions(boot.GRPCServerOptions()...),
//	)
func NewGRPCService(name, addr string, registerFunc func(*grpc.Server), opts ...GRPCServiceOption) *GRPCService {
	s := &GRPCService{
		name:            name,
		addr:            addr,
		registerFunc:    registerFunc,
		shutdownTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start listens on the configured address and serves in the background.
// It returns an error if the address cannot be bound.
func (s *GRPCService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("service %s already started", s.name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	s.server = grpc.NewServer(s.serverOpts...)
	if s.registerFunc != nil {
		s.registerFunc(s.server)
	}
	if s.enableReflection {
		reflection.Register(s.server)
	}

	server := s.server
	go func() {
		if err := server.Serve(listener); err != nil && s.logger != nil {
			s.logger.Error().Err(err).Str("service", s.name).Msg("gRPC server error")
		}
	}()

	s.started = true
	if s.logger != nil {
		s.logger.Info().Str("service", s.name).Str("addr", listener.Addr().String()).Msg("gRPC service started")
	}
	return nil
}

// Stop gracefully stops the gRPC server, waiting for in-flight RPCs to complete.
// Once the context is done, remaining RPCs are cancelled.
func (s *GRPCService) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	started := s.started
	s.mu.Unlock()

	if !started || server == nil {
		return nil
	}

	// Use configured shutdown timeout if context has no deadline
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}

	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()

	var err error
	select {
	case <-stopped:
	case <-ctx.Done():
		server.Stop()
		err = fmt.Errorf("failed to gracefully stop gRPC service %s: %w", s.name, ctx.Err())
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	return err
}

// Name returns the service name.
func (s *GRPCService) Name() string {
	return s.name
}

// Addr returns the bound address. It is empty before Start.
func (s *GRPCService) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Health checks if the gRPC server is running.
func (s *GRPCService) Health() error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if !started {
		return fmt.Errorf("service %s not running", s.name)
	}

	return nil
}
