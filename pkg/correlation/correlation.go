// Package correlation provides per-request correlation scopes.
//
// A scope is a small fixed set of string values (request id, customer id,
// method, URL, normalized URL, remote address) attached to one task: a request
// handler and everything it calls or hands its context to. Values are read at
// log time, so call sites never pass them around explicitly.
//
// Scopes travel inside context.Context. Code running for a request reads them
// with Get(ctx, key); code running for another request holds a different
// context and can never observe them. Reads and writes outside a scope are
// harmless: Get returns "" and Set does nothing.
//
// Example usage:
//
//	err := correlation.RunInNewScope(ctx, func(ctx context.Context) error {
//	    correlation.Set(ctx, correlation.RequestID, "req-1")
//	    return handle(ctx)
//	})
//
//	// deeper in the call chain
//	id := correlation.Get(ctx, correlation.RequestID)
package correlation

import (
	"context"
	"sync/atomic"
)

var defaultStore atomic.Pointer[Store]

func init() {
	defaultStore.Store(MustNewStore(Options{}))
}

// Default returns the process-wide store.
func Default() *Store {
	return defaultStore.Load()
}

// SetDefault replaces the process-wide store. Call it during startup, before
// the first request is bound: scopes created by the previous store are not
// visible through the new one.
func SetDefault(s *Store) {
	if s == nil {
		panic("correlation: SetDefault called with nil store")
	}
	defaultStore.Store(s)
}

// RunInNewScope runs body in a fresh scope of the default store.
func RunInNewScope(ctx context.Context, body func(ctx context.Context) error) error {
	return Default().RunInNewScope(ctx, body)
}

// Set writes into the default store's scope carried by ctx.
func Set(ctx context.Context, key Key, value string) {
	Default().Set(ctx, key, value)
}

// Get reads from the default store's scope carried by ctx.
func Get(ctx context.Context, key Key) string {
	return Default().Get(ctx, key)
}

// GetValueByName reads a value by its canonical name, e.g. "CUSTOMER_ID".
// Unknown names read as "".
func GetValueByName(ctx context.Context, name string) string {
	key, ok := ParseKey(name)
	if !ok {
		return ""
	}
	return Get(ctx, key)
}

// Values returns every value of the default store's scope carried by ctx.
func Values(ctx context.Context) map[Key]string {
	return Default().Values(ctx)
}

// Bound reports whether ctx carries a scope of the default store.
func Bound(ctx context.Context) bool {
	return Default().Bound(ctx)
}

// Go runs fn in a goroutine that keeps ctx's scope alive until it returns.
func Go(ctx context.Context, fn func(ctx context.Context)) {
	Default().Go(ctx, fn)
}

// Detach returns a context that keeps ctx's values, including its scope, but
// is never canceled. Use it for work that must finish after the request ends.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// Inject returns dst carrying the default store's scope from src.
func Inject(dst, src context.Context) context.Context {
	return Default().Inject(dst, src)
}
