// Package health reports whether the correlation and logging infrastructure
// of a service is fit to take traffic.
//
// Example usage:
//
//	h := health.New()
//	h.RegisterChecker("correlation_store", health.ScopeLimitChecker(store, 10000))
//	h.RegisterChecker("log_sink", health.LogDirChecker(cfg.Log.Dir))
//
//	mux.Handle("/health/live", h.LivenessHandler())
//	mux.Handle("/health/ready", h.ReadinessHandler())
package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Checker checks one component. A nil error means healthy.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

// Check calls f.
func (f CheckerFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// Result is the aggregated outcome of all registered checks.
type Result struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health runs named checkers concurrently and caches the aggregate briefly so
// probes under load do not stampede the components.
type Health struct {
	mu       sync.RWMutex
	checkers map[string]Checker

	cacheMu     sync.Mutex
	cached      *Result
	cacheExpiry time.Time
	cacheTTL    time.Duration

	checkTimeout time.Duration
}

// New returns a Health with a 5s check timeout and a 1s cache.
func New() *Health {
	return NewWithConfig(5*time.Second, time.Second)
}

// NewWithConfig returns a Health with the given check timeout and cache TTL.
// A zero TTL disables caching.
func NewWithConfig(checkTimeout, cacheTTL time.Duration) *Health {
	return &Health{
		checkers:     make(map[string]Checker),
		checkTimeout: checkTimeout,
		cacheTTL:     cacheTTL,
	}
}

// RegisterChecker adds or replaces the checker for name.
func (h *Health) RegisterChecker(name string, c Checker) {
	h.mu.Lock()
	h.checkers[name] = c
	h.mu.Unlock()
	h.ClearCache()
}

// Check runs every checker, or returns the cached result while it is fresh.
func (h *Health) Check(ctx context.Context) *Result {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()

	if h.cached != nil && time.Now().Before(h.cacheExpiry) {
		return h.cached
	}

	result := h.run(ctx)
	h.cached = result
	h.cacheExpiry = time.Now().Add(h.cacheTTL)
	return result
}

// ClearCache forces the next Check to run the checkers.
func (h *Health) ClearCache() {
	h.cacheMu.Lock()
	h.cached = nil
	h.cacheExpiry = time.Time{}
	h.cacheMu.Unlock()
}

func (h *Health) run(ctx context.Context) *Result {
	h.mu.RLock()
	checkers := make(map[string]Checker, len(h.checkers))
	for name, c := range h.checkers {
		checkers[name] = c
	}
	h.mu.RUnlock()

	if _, ok := ctx.Deadline(); !ok && h.checkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.checkTimeout)
		defer cancel()
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result = &Result{Status: StatusHealthy, Checks: make(map[string]CheckResult, len(checkers))}
	)
	for name, c := range checkers {
		wg.Add(1)
		go func(name string, c Checker) {
			defer wg.Done()

			cr := CheckResult{Status: "ok"}
			if err := c.Check(ctx); err != nil {
				cr = CheckResult{Status: "error", Message: err.Error()}
			}

			mu.Lock()
			result.Checks[name] = cr
			if cr.Status != "ok" {
				result.Status = StatusUnhealthy
			}
			mu.Unlock()
		}(name, c)
	}
	wg.Wait()

	return result
}

// CheckComponent runs a single named checker, bypassing the cache.
func (h *Health) CheckComponent(ctx context.Context, name string) error {
	h.mu.RLock()
	c, ok := h.checkers[name]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("health checker %q not registered", name)
	}

	if _, ok := ctx.Deadline(); !ok && h.checkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.checkTimeout)
		defer cancel()
	}
	return c.Check(ctx)
}
