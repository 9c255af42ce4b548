package metrics

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// HTTPMiddleware records duration and count of HTTP requests. Install it
// inside the binder middleware: the route label is read from the scope after
// the handler returned, once routing filled the normalized URL.
func (c *Collectors) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &metricsResponseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			statusCode := strconv.Itoa(wrapped.statusCode)
			route := c.route(r.Context())

			c.httpDuration.Observe(duration, r.Method, route, statusCode)
			c.httpCount.Inc(r.Method, route, statusCode)
		})
	}
}

// metricsResponseWriter wraps http.ResponseWriter to capture the status code.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (m *metricsResponseWriter) WriteHeader(code int) {
	if !m.written {
		m.statusCode = code
		m.written = true
		m.ResponseWriter.WriteHeader(code)
	}
}

func (m *metricsResponseWriter) Write(b []byte) (int, error) {
	if !m.written {
		m.WriteHeader(http.StatusOK)
	}
	return m.ResponseWriter.Write(b)
}

// UnaryServerInterceptor records duration and count of unary gRPC calls.
func (c *Collectors) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		statusCode := grpcStatusCode(err)
		c.grpcDuration.Observe(time.Since(start).Seconds(), info.FullMethod, statusCode)
		c.grpcCount.Inc(info.FullMethod, statusCode)

		return resp, err
	}
}

// StreamServerInterceptor records duration and count of streaming gRPC calls.
func (c *Collectors) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()

		err := handler(srv, ss)

		statusCode := grpcStatusCode(err)
		c.grpcDuration.Observe(time.Since(start).Seconds(), info.FullMethod, statusCode)
		c.grpcCount.Inc(info.FullMethod, statusCode)

		return err
	}
}

// grpcStatusCode extracts the gRPC status code from an error.
// Returns "OK" if err is nil.
func grpcStatusCode(err error) string {
	switch err {
	case nil:
		return "OK"
	case context.Canceled:
		return "CANCELLED"
	case context.DeadlineExceeded:
		return "DEADLINE_EXCEEDED"
	case io.EOF:
		return "UNAVAILABLE"
	}

	if st, ok := status.FromError(err); ok {
		return st.Code().String()
	}
	return "UNKNOWN"
}
