// Package binder binds inbound requests to a correlation scope.
//
// For every request the binder opens a new scope, fills it from the request
// (request id, URL, customer id, method, normalized URL, client address) and
// runs the rest of the handling chain inside it, so every log line emitted
// downstream carries the request's identity.
//
// Example usage:
//
//	b := binder.New(binder.Options{BasePath: "/api/v2"})
//	handler := b.HTTPMiddleware()(router)
//
//	// later, once authentication resolved the caller
//	binder.UpdateCustomerID(ctx, claims.Subject)
package binder

import (
	"context"

	"github.com/Combine-Capital/cqlog/pkg/config"
	"github.com/Combine-Capital/cqlog/pkg/correlation"
)

// Observer is notified once per bound request.
type Observer interface {
	// ObserveBind reports whether the request id was generated rather than
	// taken from the request.
	ObserveBind(ctx context.Context, generated bool)
}

// Options configures a Binder. Zero values fall back to the defaults noted on
// each field.
type Options struct {
	// RequestIDHeader carries an upstream request id. Default: X-Request-ID.
	RequestIDHeader string

	// UserIDHeader carries the customer id. Default: X-User-ID.
	UserIDHeader string

	// IDGenerator creates ids for requests without one. Default: UUIDGenerator.
	IDGenerator IDGenerator

	// EchoRequestID writes the request id back on HTTP responses.
	EchoRequestID bool

	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	// MaxBodyBytes bounds body inspection for customer id fields. Default:
	// DefaultMaxBodyBytes. A negative value disables body inspection.
	MaxBodyBytes int64

	// BasePath is the mount point of the router, prepended to route patterns.
	BasePath string

	// Resolver finds the matched route pattern. Default: ContextResolver, then
	// ServeMuxResolver.
	Resolver RouteResolver

	// Store holds the scopes. Default: correlation.Default() at bind time.
	Store *correlation.Store

	// Observer is optional.
	Observer Observer
}

// OptionsFromConfig builds Options from the correlation and server config.
func OptionsFromConfig(cfg config.CorrelationConfig, server config.ServerConfig) (Options, error) {
	gen, err := NewIDGenerator(cfg.IDFormat)
	if err != nil {
		return Options{}, err
	}
	return Options{
		RequestIDHeader: cfg.RequestIDHeader,
		UserIDHeader:    cfg.UserIDHeader,
		IDGenerator:     gen,
		EchoRequestID:   cfg.EchoRequestID,
		TrustProxy:      cfg.TrustProxy,
		MaxBodyBytes:    cfg.MaxBodyBytes,
		BasePath:        server.BasePath,
	}, nil
}

// DefaultMaxBodyBytes is the body inspection limit used when Options leaves it zero.
const DefaultMaxBodyBytes = 1 << 20

// Binder seeds correlation scopes from inbound requests.
type Binder struct {
	opts Options
}

// New creates a Binder.
func New(opts Options) *Binder {
	if opts.RequestIDHeader == "" {
		opts.RequestIDHeader = "X-Request-ID"
	}
	if opts.UserIDHeader == "" {
		opts.UserIDHeader = "X-User-ID"
	}
	if opts.IDGenerator == nil {
		opts.IDGenerator = UUIDGenerator
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Resolver == nil {
		opts.Resolver = ChainResolvers(ContextResolver, ServeMuxResolver)
	}
	return &Binder{opts: opts}
}

func (b *Binder) store() *correlation.Store {
	if b.opts.Store != nil {
		return b.opts.Store
	}
	return correlation.Default()
}

// Bind opens a new scope, seeds it from req and calls next inside it, exactly
// once and synchronously. next's error is returned unchanged.
func (b *Binder) Bind(ctx context.Context, req Request, next func(ctx context.Context) error) error {
	store := b.store()

	return store.RunInNewScope(ctx, func(ctx context.Context) error {
		requestID, generated := resolveRequestID(req, b.opts.RequestIDHeader, b.opts.IDGenerator)

		store.Set(ctx, correlation.RequestID, requestID)
		store.Set(ctx, correlation.RequestURL, resolveRequestURL(req))
		store.Set(ctx, correlation.CustomerID, resolveCustomerID(req, b.opts.UserIDHeader))
		store.Set(ctx, correlation.RequestMethod, req.Method())
		store.Set(ctx, correlation.NormalizedURL, resolveNormalizedURL(req))
		store.Set(ctx, correlation.RemoteAddress, req.ClientIP())

		if b.opts.Observer != nil {
			b.opts.Observer.ObserveBind(ctx, generated)
		}

		return next(ctx)
	})
}

// UpdateCustomerID replaces the customer id of the scope carried by ctx.
func (b *Binder) UpdateCustomerID(ctx context.Context, id string) {
	b.store().Set(ctx, correlation.CustomerID, id)
}

// CustomerID returns the customer id of the scope carried by ctx.
func (b *Binder) CustomerID(ctx context.Context) string {
	return b.store().Get(ctx, correlation.CustomerID)
}

// UpdateCustomerID replaces the customer id in the default store's scope
// carried by ctx. Use it when a later stage, typically authentication, knows
// the caller better than the request heuristics did. Outside a scope it does
// nothing.
func UpdateCustomerID(ctx context.Context, id string) {
	correlation.Set(ctx, correlation.CustomerID, id)
}
