package auth

import (
	"context"

	"github.com/Combine-Capital/cqlog/pkg/errors"
)

type authContextKey struct{}

// GetAuthContext returns the AuthContext stored by the authentication
// middleware, or an UnauthorizedError if the request was not authenticated.
func GetAuthContext(ctx context.Context) (*AuthContext, error) {
	if auth, ok := ctx.Value(authContextKey{}).(*AuthContext); ok && auth != nil {
		return auth, nil
	}
	return nil, errors.NewUnauthorized("no authentication context found")
}

// MustGetAuthContext is GetAuthContext for handlers mounted behind the
// authentication middleware. It panics when ctx is unauthenticated.
func MustGetAuthContext(ctx context.Context) *AuthContext {
	auth, err := GetAuthContext(ctx)
	if err != nil {
		panic(err)
	}
	return auth
}

// VerifiedCustomerID returns the customer id established by authentication.
// Unlike the scope's CUSTOMER_ID, which may hold the value a client claimed
// in a header or query parameter, ok is only true for an authenticated
// customer caller.
func VerifiedCustomerID(ctx context.Context) (id string, ok bool) {
	auth, err := GetAuthContext(ctx)
	if err != nil || !auth.IsCustomer() {
		return "", false
	}
	return auth.CustomerID, true
}

// ClaimedCustomerID reports the customer id the request carried before
// authentication replaced it with a different one, and "" otherwise. A
// non-empty result means the client asked to act for someone else.
func ClaimedCustomerID(ctx context.Context) string {
	auth, err := GetAuthContext(ctx)
	if err != nil || !auth.IsCustomer() || auth.claimedCustomerID == auth.CustomerID {
		return ""
	}
	return auth.claimedCustomerID
}

func setAuthContext(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}
