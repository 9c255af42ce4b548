// Package auth provides HTTP and gRPC authentication middleware with API key
// and JWT validation. Once a caller is authenticated, its customer id replaces
// the one the binder guessed from the request, so later log lines carry the
// verified identity.
//
// Example usage with JWT:
//
//	jwtCfg, err := auth.JWTConfigFromConfig(cfg.Auth)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	handler := b.HTTPMiddleware()(auth.JWTMiddleware(jwtCfg)(router))
//
// Example usage with API keys:
//
//	keys := map[string]string{"k-123": "customer-42"}
//	server := grpc.NewServer(
//	    grpc.ChainUnaryInterceptor(b.UnaryServerInterceptor(), auth.APIKeyUnaryInterceptor(keys, nil)),
//	)
package auth

import (
	"context"
	"strings"

	"github.com/Combine-Capital/cqlog/pkg/binder"
	"github.com/Combine-Capital/cqlog/pkg/correlation"
	"github.com/Combine-Capital/cqlog/pkg/errors"
)

// AuthType represents the type of authentication used.
type AuthType string

const (
	// AuthTypeAPIKey represents API key authentication.
	AuthTypeAPIKey AuthType = "API_KEY"

	// AuthTypeJWT represents JWT token authentication.
	AuthTypeJWT AuthType = "JWT"
)

// servicePrefix marks a subject as a service rather than a customer.
const servicePrefix = "service:"

// AuthContext contains authentication information extracted from a request.
// It is stored in context.Context and can be retrieved using GetAuthContext.
type AuthContext struct {
	// CustomerID identifies the customer the caller acts for.
	// Empty for service-to-service authentication.
	CustomerID string

	// ServiceID identifies the calling service.
	// Empty for customer authentication.
	ServiceID string

	// AuthType indicates the authentication method used (API_KEY or JWT).
	AuthType AuthType

	// Claims contains the claims of JWT tokens.
	// For API key authentication, this will be nil.
	Claims map[string]interface{}

	// claimedCustomerID is the scope's customer id before authentication.
	claimedCustomerID string
}

// IsCustomer returns true if the caller acts for a customer.
func (a *AuthContext) IsCustomer() bool {
	return a.CustomerID != ""
}

// IsService returns true if this is a service authentication context (ServiceID is set).
func (a *AuthContext) IsService() bool {
	return a.ServiceID != ""
}

// GetClaim returns a claim value from the Claims map.
// Returns nil if the claim doesn't exist.
func (a *AuthContext) GetClaim(key string) interface{} {
	if a.Claims == nil {
		return nil
	}
	return a.Claims[key]
}

// GetClaimString returns a claim value as a string.
// Returns empty string if the claim doesn't exist or is not a string.
func (a *AuthContext) GetClaimString(key string) string {
	if str, ok := a.GetClaim(key).(string); ok {
		return str
	}
	return ""
}

// authenticated stores auth in ctx and records its customer id in the
// correlation scope of ctx, through b when set. The id the scope held before
// is kept on auth for ClaimedCustomerID.
func authenticated(ctx context.Context, auth *AuthContext, b *binder.Binder) context.Context {
	if b != nil {
		auth.claimedCustomerID = b.CustomerID(ctx)
	} else {
		auth.claimedCustomerID = correlation.Get(ctx, correlation.CustomerID)
	}

	if auth.CustomerID != "" {
		if b != nil {
			b.UpdateCustomerID(ctx, auth.CustomerID)
		} else {
			binder.UpdateCustomerID(ctx, auth.CustomerID)
		}
	}
	return setAuthContext(ctx, auth)
}

// bearerToken extracts the token of a "Bearer {token}" header value.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.NewUnauthorized("missing Authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errors.NewUnauthorized("invalid Authorization header format, expected 'Bearer {token}'")
	}
	return token, nil
}
