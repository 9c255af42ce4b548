package auth

import (
	"context"
	"net/http"

	"github.com/Combine-Capital/cqlog/pkg/binder"
	"github.com/Combine-Capital/cqlog/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// APIKeyMiddleware returns an HTTP middleware that validates API keys sent as
// "Authorization: Bearer {key}". keys maps each accepted key to the customer
// id it acts for; an empty customer id marks a service key, identified by the
// key itself. b selects the correlation store; nil uses the default store.
//
// On failure, it returns 401 Unauthorized.
func APIKeyMiddleware(keys map[string]string, b *binder.Binder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx, err := validateAPIKey(r.Header.Get("Authorization"), keys)
			if err != nil {
				errors.WriteHTTPError(w, err)
				return
			}

			ctx := authenticated(r.Context(), authCtx, b)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKeyUnaryInterceptor returns a gRPC unary server interceptor that validates
// API keys from the "authorization" metadata. Chain it after the binder
// interceptor.
//
// On failure, it returns codes.Unauthenticated status.
func APIKeyUnaryInterceptor(keys map[string]string, b *binder.Binder) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		authCtx, err := validateAPIKey(authorizationMetadata(ctx), keys)
		if err != nil {
			return nil, errors.ToGRPCError(err)
		}

		return handler(authenticated(ctx, authCtx, b), req)
	}
}

func validateAPIKey(header string, keys map[string]string) (*AuthContext, error) {
	key, err := bearerToken(header)
	if err != nil {
		return nil, err
	}

	customerID, ok := keys[key]
	if !ok {
		return nil, errors.NewUnauthorized("invalid API key")
	}

	authCtx := &AuthContext{AuthType: AuthTypeAPIKey, CustomerID: customerID}
	if customerID == "" {
		authCtx.ServiceID = key
	}
	return authCtx, nil
}

// authorizationMetadata returns the first "authorization" metadata value.
func authorizationMetadata(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if values := md.Get("authorization"); len(values) > 0 {
		return values[0]
	}
	return ""
}

// authenticatedStream wraps a grpc.ServerStream with an authenticated context.
type authenticatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the authenticated context.
func (s *authenticatedStream) Context() context.Context {
	return s.ctx
}
