package config

import (
	"strings"
	"time"

	"github.com/Combine-Capital/cqlog/pkg/errors"
)

// Validate validates the configuration and returns an InvalidInputError for the
// first field that is missing or out of range.
func Validate(cfg *Config) error {
	if cfg.Server.HTTPPort == 0 && cfg.Server.GRPCPort == 0 {
		return errors.NewInvalidInput("server.http_port", "server.http_port or server.grpc_port is required")
	}
	if cfg.Server.HTTPPort < 0 || cfg.Server.HTTPPort > 65535 {
		return errors.NewInvalidInput("server.http_port", "must be between 0 and 65535")
	}
	if cfg.Server.GRPCPort < 0 || cfg.Server.GRPCPort > 65535 {
		return errors.NewInvalidInput("server.grpc_port", "must be between 0 and 65535")
	}
	if cfg.Server.BasePath != "" && !strings.HasPrefix(cfg.Server.BasePath, "/") {
		return errors.NewInvalidInput("server.base_path", "must start with '/'")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.NewInvalidInput("log.level", "must be one of debug, info, warn, error")
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "console":
	default:
		return errors.NewInvalidInput("log.format", "must be json or console")
	}
	switch strings.ToLower(cfg.Log.Output) {
	case "stdout", "stderr":
	case "none":
		if cfg.Log.Dir == "" {
			return errors.NewInvalidInput("log.output", "none requires log.dir, otherwise nothing is logged")
		}
	default:
		return errors.NewInvalidInput("log.output", "must be stdout, stderr or none")
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxAgeDays < 0 || cfg.Log.MaxBackups < 0 {
		return errors.NewInvalidInput("log", "rotation limits must not be negative")
	}

	switch cfg.Correlation.IDFormat {
	case "uuid", "hex":
	default:
		return errors.NewInvalidInput("correlation.id_format", "must be uuid or hex")
	}
	if cfg.Correlation.MaxBodyBytes < 0 {
		return errors.NewInvalidInput("correlation.max_body_bytes", "must not be negative")
	}
	if cfg.Correlation.MaxValueLength < 0 {
		return errors.NewInvalidInput("correlation.max_value_length", "must not be negative")
	}
	if cfg.Correlation.MaxActiveScopes < 0 {
		return errors.NewInvalidInput("correlation.max_active_scopes", "must not be negative")
	}

	if !cfg.Auth.Enabled() && (cfg.Auth.JWTIssuer != "" || cfg.Auth.JWTAudience != "") {
		return errors.NewInvalidInput("auth", "jwt_issuer/jwt_audience require jwt_public_key_path or jwt_secret")
	}

	return nil
}

// applyDefaults applies default values to the configuration where values are not set.
func applyDefaults(cfg *Config) {
	if cfg.Service.Env == "" {
		cfg.Service.Env = "development"
	}

	if cfg.Server.HTTPPort == 0 && cfg.Server.GRPCPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = 1 << 20 // 1 MB
	}
	cfg.Server.BasePath = strings.TrimSuffix(cfg.Server.BasePath, "/")

	if cfg.Log.Env == "" {
		cfg.Log.Env = cfg.Service.Env
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		if cfg.Log.Env == "production" && cfg.Log.Dir != "" {
			cfg.Log.Output = "none"
		} else {
			cfg.Log.Output = "stdout"
		}
	}
	if cfg.Log.FilePrefix == "" {
		if cfg.Service.Name != "" {
			cfg.Log.FilePrefix = cfg.Service.Name
		} else {
			cfg.Log.FilePrefix = "app"
		}
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 250
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 15
	}

	if cfg.Correlation.RequestIDHeader == "" {
		cfg.Correlation.RequestIDHeader = "X-Request-ID"
	}
	if cfg.Correlation.UserIDHeader == "" {
		cfg.Correlation.UserIDHeader = "X-User-ID"
	}
	if cfg.Correlation.IDFormat == "" {
		cfg.Correlation.IDFormat = "uuid"
	}
	if cfg.Correlation.MaxBodyBytes == 0 {
		cfg.Correlation.MaxBodyBytes = 1 << 20 // 1 MB
	}
	if cfg.Correlation.MaxValueLength == 0 {
		cfg.Correlation.MaxValueLength = 256
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "cqlog"
	}

	if cfg.Auth.CustomerClaim == "" {
		cfg.Auth.CustomerClaim = "sub"
	}
}

// Defaults returns a configuration with every default applied. It is the
// starting point for programs that do not load a file.
func Defaults() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}
