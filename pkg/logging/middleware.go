package logging

import (
	"context"
	"net/http"
	"time"

	"github.com/Combine-Capital/cqlog/pkg/errors"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// AccessLogMiddleware logs one record per request once the handler returned.
// Install it inside the binder middleware so the record carries the request's
// correlation fields. The logger is also made available through FromContext.
func AccessLogMiddleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := WithLogger(r.Context(), logger)
			r = r.WithContext(ctx)

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Milliseconds()

			logEvent := logger.Info()
			if wrapped.statusCode >= 500 {
				logEvent = logger.Error()
			} else if wrapped.statusCode >= 400 {
				logEvent = logger.Warn()
			}

			withCtx(logEvent, ctx).
				Dict(ResponseField, zerolog.Dict().Int(StatusCode, wrapped.statusCode)).
				Int64(Duration, duration).
				Msg("request completed")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// RecoveryFunc returns an errors.RecoveryFunc that logs the panic with the
// request's correlation fields before converting it to a PermanentError.
func RecoveryFunc(logger *Logger) errors.RecoveryFunc {
	return func(ctx context.Context, p interface{}) error {
		err := errors.DefaultRecoveryFunc(ctx, p)
		logger.ErrorCtx(ctx, "panic recovered", err, []string{"panic"})
		return err
	}
}

// UnaryServerInterceptor returns a gRPC unary server interceptor that logs
// completed calls. Chain it after the binder interceptor.
func UnaryServerInterceptor(logger *Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		ctx = WithLogger(ctx, logger)

		resp, err := handler(ctx, req)

		logCompletion(ctx, logger, err, time.Since(start), "grpc call completed")
		return resp, err
	}
}

// StreamServerInterceptor returns a gRPC stream server interceptor that logs
// completed streams. Chain it after the binder interceptor.
func StreamServerInterceptor(logger *Logger) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()
		ctx := WithLogger(ss.Context(), logger)

		err := handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})

		logCompletion(ctx, logger, err, time.Since(start), "grpc stream completed")
		return err
	}
}

func logCompletion(ctx context.Context, logger *Logger, err error, d time.Duration, msg string) {
	logEvent := logger.Info()
	if err != nil {
		st, _ := status.FromError(err)
		logEvent = logger.Error().
			Str(Error, err.Error()).
			Str("grpc_code", st.Code().String())
	}

	withCtx(logEvent, ctx).
		Int64(Duration, d.Milliseconds()).
		Msg(msg)
}

// wrappedServerStream wraps grpc.ServerStream to provide enriched context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
