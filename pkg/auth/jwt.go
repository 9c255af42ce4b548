package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/Combine-Capital/cqlog/pkg/binder"
	"github.com/Combine-Capital/cqlog/pkg/config"
	"github.com/Combine-Capital/cqlog/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
)

// JWTConfig contains configuration for JWT validation.
type JWTConfig struct {
	// PublicKey verifies RS256/384/512 signatures.
	PublicKey *rsa.PublicKey

	// Secret verifies HS256/384/512 signatures.
	Secret []byte

	// Issuer is the expected value of the "iss" (issuer) claim.
	// If empty, issuer validation is skipped.
	Issuer string

	// Audience is the expected value of the "aud" (audience) claim.
	// If empty, audience validation is skipped.
	Audience string

	// CustomerClaim names the claim holding the customer id. Default: "sub".
	CustomerClaim string

	// Binder selects the correlation store updated with the customer id.
	// Default: the default store.
	Binder *binder.Binder
}

// JWTConfigFromConfig builds a JWTConfig, reading the public key file when one
// is configured.
func JWTConfigFromConfig(cfg config.AuthConfig) (JWTConfig, error) {
	jc := JWTConfig{
		Issuer:        cfg.JWTIssuer,
		Audience:      cfg.JWTAudience,
		CustomerClaim: cfg.CustomerClaim,
	}
	if cfg.JWTSecret != "" {
		jc.Secret = []byte(cfg.JWTSecret)
	}
	if cfg.JWTPublicKeyPath != "" {
		key, err := LoadPublicKeyFromFile(cfg.JWTPublicKeyPath)
		if err != nil {
			return JWTConfig{}, errors.NewInvalidInputWithCause("auth.jwt_public_key_path", "cannot load public key", err)
		}
		jc.PublicKey = key
	}
	return jc, nil
}

// JWTMiddleware returns an HTTP middleware that validates JWT tokens.
// It checks the Authorization header for "Bearer {token}" format and validates:
// - JWT signature using the configured key
// - Expiration time (exp claim) and not-before (nbf claim)
// - Issuer (iss claim) if configured
// - Audience (aud claim) if configured
//
// On success, it injects an AuthContext into the request context and replaces
// the customer id of the correlation scope with the token's customer claim.
// Install it inside the binder middleware.
//
// On failure, it returns 401 Unauthorized.
func JWTMiddleware(config JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx, err := validateJWTHeader(r.Header.Get("Authorization"), config)
			if err != nil {
				errors.WriteHTTPError(w, err)
				return
			}

			ctx := authenticated(r.Context(), authCtx, config.Binder)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// JWTUnaryInterceptor returns a gRPC unary server interceptor that validates JWT tokens
// from the "authorization" metadata using the same rules as JWTMiddleware.
// Chain it after the binder interceptor.
//
// On failure, it returns codes.Unauthenticated status.
func JWTUnaryInterceptor(config JWTConfig) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		authCtx, err := validateJWTHeader(authorizationMetadata(ctx), config)
		if err != nil {
			return nil, errors.ToGRPCError(err)
		}

		return handler(authenticated(ctx, authCtx, config.Binder), req)
	}
}

// JWTStreamInterceptor returns a gRPC stream server interceptor that validates JWT tokens
// using the same rules as JWTMiddleware.
//
// On failure, it returns codes.Unauthenticated status.
func JWTStreamInterceptor(config JWTConfig) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		authCtx, err := validateJWTHeader(authorizationMetadata(ss.Context()), config)
		if err != nil {
			return errors.ToGRPCError(err)
		}

		wrappedStream := &authenticatedStream{
			ServerStream: ss,
			ctx:          authenticated(ss.Context(), authCtx, config.Binder),
		}

		return handler(srv, wrappedStream)
	}
}

func validateJWTHeader(header string, config JWTConfig) (*AuthContext, error) {
	token, err := bearerToken(header)
	if err != nil {
		return nil, err
	}
	return parseAndValidateJWT(token, config)
}

// parseAndValidateJWT parses and validates a JWT token string.
func parseAndValidateJWT(tokenString string, config JWTConfig) (*AuthContext, error) {
	var opts []jwt.ParserOption
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA:
			if config.PublicKey != nil {
				return config.PublicKey, nil
			}
		case *jwt.SigningMethodHMAC:
			if len(config.Secret) > 0 {
				return config.Secret, nil
			}
		}
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}, opts...)
	if err != nil {
		return nil, errors.NewUnauthorizedWithCause("invalid JWT token", err)
	}
	if !token.Valid {
		return nil, errors.NewUnauthorized("JWT token is not valid")
	}

	authCtx := &AuthContext{
		AuthType: AuthTypeJWT,
		Claims:   map[string]interface{}(claims),
	}

	// "service:<name>" subjects are services; otherwise the customer claim names the customer
	subject, _ := claims.GetSubject()
	if strings.HasPrefix(subject, servicePrefix) {
		authCtx.ServiceID = strings.TrimPrefix(subject, servicePrefix)
		return authCtx, nil
	}

	claimName := config.CustomerClaim
	if claimName == "" {
		claimName = "sub"
	}
	authCtx.CustomerID = claimString(claims[claimName])

	return authCtx, nil
}

// claimString renders string and numeric claims; JSON numbers decode as float64.
func claimString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// LoadPublicKeyFromPEM loads an RSA public key from PEM-encoded bytes.
func LoadPublicKeyFromPEM(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	// Try parsing as PKIX (standard public key format)
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err == nil {
		if rsaKey, ok := pub.(*rsa.PublicKey); ok {
			return rsaKey, nil
		}
		return nil, fmt.Errorf("not an RSA public key")
	}

	// Try parsing as PKCS1 (RSA-specific format)
	rsaKey, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	return rsaKey, nil
}

// LoadPublicKeyFromFile loads an RSA public key from a PEM file.
func LoadPublicKeyFromFile(path string) (*rsa.PublicKey, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	return LoadPublicKeyFromPEM(pemBytes)
}
