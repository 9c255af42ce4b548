// Package config provides configuration management for cqlog.
// It loads configuration from YAML/JSON files and environment variables,
// then applies defaults and validates the result.
//
// Example usage:
//
//	cfg, err := config.Load("config.yaml", "CQLOG")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Or panic on error:
//	cfg := config.MustLoad("config.yaml", "CQLOG")
package config

import (
	"time"
)

// Config represents the complete configuration for a service using cqlog.
type Config struct {
	Service     ServiceConfig     `mapstructure:"service"`
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Correlation CorrelationConfig `mapstructure:"correlation"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Auth        AuthConfig        `mapstructure:"auth"`
}

// ServiceConfig contains general service information.
type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"` // development, staging, production
}

// ServerConfig contains HTTP/gRPC server configuration.
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	BasePath        string        `mapstructure:"base_path"` // mount point of the API router, e.g. /api/v2
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// LogConfig contains structured logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, none

	// Dir enables the rotating file sink when set. The file is
	// <Dir>/<FilePrefix>.log; rotated files carry a timestamp suffix.
	Dir        string `mapstructure:"dir"`
	FilePrefix string `mapstructure:"file_prefix"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`

	// Env decides the default console output: production services with a file
	// sink log to the file only. Filled from service.env when empty.
	Env string `mapstructure:"env"`
}

// CorrelationConfig controls how inbound requests are bound to a correlation scope.
type CorrelationConfig struct {
	RequestIDHeader string `mapstructure:"request_id_header"`
	UserIDHeader    string `mapstructure:"user_id_header"`

	// IDFormat selects the generator for missing request ids: "uuid" or "hex".
	IDFormat string `mapstructure:"id_format"`

	// EchoRequestID writes the request id back on the response.
	EchoRequestID bool `mapstructure:"echo_request_id"`

	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy bool `mapstructure:"trust_proxy"`

	// MaxBodyBytes bounds how much of a request body is inspected for customer
	// id fields. Default: 1 MB.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`

	// MaxValueLength truncates stored correlation values. Default: 256.
	MaxValueLength int `mapstructure:"max_value_length"`

	// MaxActiveScopes fails the readiness check when more scopes than this
	// are registered at once. 0 disables the check.
	MaxActiveScopes int `mapstructure:"max_active_scopes"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"` // Metric prefix
}

// AuthConfig contains authentication configuration.
type AuthConfig struct {
	// JWTPublicKeyPath is the path to the RSA public key file (PEM format)
	// used to verify JWT signatures.
	JWTPublicKeyPath string `mapstructure:"jwt_public_key_path"`

	// JWTSecret is an HMAC secret, used when no public key is configured.
	JWTSecret string `mapstructure:"jwt_secret"`

	// JWTIssuer is the expected "iss" claim. Empty skips the check.
	JWTIssuer string `mapstructure:"jwt_issuer"`

	// JWTAudience is the expected "aud" claim. Empty skips the check.
	JWTAudience string `mapstructure:"jwt_audience"`

	// CustomerClaim names the claim holding the customer id. Default: "sub".
	CustomerClaim string `mapstructure:"customer_claim"`

	// APIKeys maps accepted API keys to the customer id they act for. An
	// empty customer id marks a service key. Read from the config file only.
	APIKeys map[string]string `mapstructure:"api_keys"`
}

// Enabled reports whether JWT authentication is configured.
func (c AuthConfig) Enabled() bool {
	return c.JWTPublicKeyPath != "" || c.JWTSecret != ""
}
