package binder

import (
	"context"
	"net/http"
	"strings"
)

// RouteResolver returns the route pattern the request was matched to, relative
// to the router's mount point.
type RouteResolver func(r *http.Request) (pattern string, ok bool)

type routeKey struct{}

// WithRoutePattern records the matched route pattern on ctx. Routers that do
// not expose their match call it from a per-route wrapper.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routeKey{}, pattern)
}

// ContextResolver reads the pattern recorded by WithRoutePattern.
func ContextResolver(r *http.Request) (string, bool) {
	p, ok := r.Context().Value(routeKey{}).(string)
	return p, ok && p != ""
}

// ServeMuxResolver reads the pattern set by http.ServeMux. Method and host
// parts of the pattern are dropped: "GET example.com/User/{id}" -> "/User/{id}".
// The catch-all "/" names no route and is ignored.
func ServeMuxResolver(r *http.Request) (string, bool) {
	p := r.Pattern
	if p == "" {
		return "", false
	}
	if _, rest, ok := strings.Cut(p, " "); ok {
		p = strings.TrimLeft(rest, " \t")
	}
	if !strings.HasPrefix(p, "/") {
		i := strings.IndexByte(p, '/')
		if i < 0 {
			return "", false
		}
		p = p[i:]
	}
	if p == "/" {
		return "", false
	}
	return p, true
}

// ChainResolvers returns the first match among resolvers.
func ChainResolvers(resolvers ...RouteResolver) RouteResolver {
	return func(r *http.Request) (string, bool) {
		for _, resolve := range resolvers {
			if p, ok := resolve(r); ok {
				return p, true
			}
		}
		return "", false
	}
}
