// Package service provides lifecycle management for services that log with
// request correlation. Bootstrap builds the shared components from
// configuration and composes the request middleware in the order the
// correlation scope requires: the binder first, everything else inside it.
//
// Example usage:
//
//	cfg := config.MustLoad("config.yaml", "CQLOG")
//	boot, err := service.NewBootstrap(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer boot.Cleanup(ctx)
//
//	httpSvc := service.NewHTTPServiceFromConfig(cfg.Service.Name, cfg.Server, boot.HTTPHandler(router),
//	    service.WithLogger(boot.Logger),
//	)
//	if err := httpSvc.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	service.WaitForShutdown(ctx, boot.Logger, httpSvc)
package service

import "context"

// Service represents a service that can be started, stopped, and health-checked.
// It provides a unified interface for HTTP and gRPC servers.
type Service interface {
	// Start starts the service and returns once it is listening.
	// The context becomes the base context of every request.
	Start(ctx context.Context) error

	// Stop gracefully stops the service, waiting for in-flight requests to complete.
	// The context deadline determines how long to wait for graceful shutdown.
	Stop(ctx context.Context) error

	// Name returns the name of the service for logging and identification.
	Name() string

	// Health returns nil if the service is running.
	Health() error
}
