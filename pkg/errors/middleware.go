package errors

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"google.golang.org/grpc"
)

// RecoveryFunc handles a recovered panic. It receives the context of the request
// that panicked, so correlation fields are still readable, and returns the error
// reported to the client.
type RecoveryFunc func(ctx context.Context, p interface{}) error

// DefaultRecoveryFunc converts panics to PermanentErrors.
func DefaultRecoveryFunc(_ context.Context, p interface{}) error {
	return NewPermanent(fmt.Sprintf("panic recovered: %v\nstack trace:\n%s", p, debug.Stack()), nil)
}

// RecoveryMiddleware is an HTTP middleware that recovers from panics and writes
// them as errors. If recoveryFunc is nil, DefaultRecoveryFunc is used.
//
// Install it inside the binder middleware so recoveryFunc runs in the request scope.
func RecoveryMiddleware(recoveryFunc RecoveryFunc) func(http.Handler) http.Handler {
	if recoveryFunc == nil {
		recoveryFunc = DefaultRecoveryFunc
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					WriteHTTPError(w, recoveryFunc(r.Context(), p))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// UnaryServerInterceptor returns a gRPC unary server interceptor that recovers from panics.
func UnaryServerInterceptor(recoveryFunc RecoveryFunc) grpc.UnaryServerInterceptor {
	if recoveryFunc == nil {
		recoveryFunc = DefaultRecoveryFunc
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = ToGRPCError(recoveryFunc(ctx, p))
			}
		}()

		return handler(ctx, req)
	}
}
