package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// keys lists every configuration key so environment variables are honored even
// when no config file mentions them.
var keys = []string{
	"service.name", "service.version", "service.env",
	"server.http_port", "server.grpc_port", "server.base_path", "server.read_timeout",
	"server.write_timeout", "server.shutdown_timeout", "server.max_header_bytes",
	"log.level", "log.format", "log.output", "log.dir", "log.file_prefix",
	"log.max_size_mb", "log.max_age_days", "log.max_backups", "log.compress", "log.env",
	"correlation.request_id_header", "correlation.user_id_header", "correlation.id_format",
	"correlation.echo_request_id", "correlation.trust_proxy", "correlation.max_body_bytes",
	"correlation.max_value_length", "correlation.max_active_scopes",
	"metrics.enabled", "metrics.path", "metrics.namespace",
	"auth.jwt_public_key_path", "auth.jwt_secret", "auth.jwt_issuer", "auth.jwt_audience",
	"auth.customer_claim",
}

// unprefixed maps keys to conventional variables that are read without the prefix.
// The prefixed form still wins when both are set.
var unprefixed = map[string]string{
	"log.level":   "LOG_LEVEL",
	"service.env": "APP_ENV",
}

// Load loads configuration from a file and environment variables.
// The prefix parameter is used for environment variable names (e.g., "CQLOG" -> CQLOG_LOG_LEVEL).
// If configPath is empty, only environment variables will be used.
func Load(configPath, envPrefix string) (*Config, error) {
	v := viper.New()

	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range keys {
		envName := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if envPrefix != "" {
			envName = strings.ToUpper(envPrefix) + "_" + envName
		}
		names := []string{key, envName}
		if extra, ok := unprefixed[key]; ok {
			names = append(names, extra)
		}
		if err := v.BindEnv(names...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration and panics on error.
// This is useful in main() where configuration errors should be fatal.
func MustLoad(configPath, envPrefix string) *Config {
	cfg, err := Load(configPath, envPrefix)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFromEnv loads configuration only from environment variables (no config file).
func LoadFromEnv(envPrefix string) (*Config, error) {
	return Load("", envPrefix)
}
