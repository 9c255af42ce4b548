package binder

import (
	"context"
	"net/http"

	"github.com/Combine-Capital/cqlog/pkg/correlation"
	"github.com/julienschmidt/httprouter"
)

// HTTPMiddleware binds every request to a new scope and serves next inside it.
//
// Installed in front of a router, it cannot see which route will match; add
// RouteMiddleware (or HTTPRouterHandle) per route to fill the normalized URL.
func (b *Binder) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b.serve(w, r, next)
		})
	}
}

func (b *Binder) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	_ = b.Bind(r.Context(), b.NewHTTPRequest(r), func(ctx context.Context) error {
		if b.opts.EchoRequestID {
			w.Header().Set(b.opts.RequestIDHeader, b.store().Get(ctx, correlation.RequestID))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
		return nil
	})
}

// RouteMiddleware runs after routing. It records pattern as the matched route
// and refreshes the normalized URL of the current scope; an empty pattern is
// looked up with the binder's resolver instead. Requests that reach it
// unbound are bound here.
func (b *Binder) RouteMiddleware(pattern string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if pattern != "" {
				r = r.WithContext(WithRoutePattern(r.Context(), pattern))
			}

			store := b.store()
			if !store.Bound(r.Context()) {
				b.serve(w, r, next)
				return
			}

			store.Set(r.Context(), correlation.NormalizedURL, resolveNormalizedURL(b.NewHTTPRequest(r)))
			next.ServeHTTP(w, r)
		})
	}
}

// HTTPRouterHandle wraps a julienschmidt/httprouter handle registered under
// pattern so the scope's normalized URL is the route template:
//
//	router.GET("/User/:id", b.HTTPRouterHandle("/User/:id", getUser))
func (b *Binder) HTTPRouterHandle(pattern string, h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h(w, r, ps)
		})
		ctx := context.WithValue(r.Context(), httprouter.ParamsKey, ps)
		b.RouteMiddleware(pattern)(inner).ServeHTTP(w, r.WithContext(ctx))
	}
}
