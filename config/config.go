// Package config handles loading and validation of application configuration
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/CairnApp/shellsync/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ServerConfig holds the loopback bridge server configuration.
type ServerConfig struct {
	Environment Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port        string      `mapstructure:"PORT" yaml:"port"`
	// AllowedOrigins lists the hosted web application origins allowed to call
	// the bridge endpoints from inside the WebView.
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
}

// RedisConfig holds connection details for the secure-store backend.
type RedisConfig struct {
	// Enabled switches between the redis-backed store and the in-memory
	// degraded mode.
	Enabled      bool   `mapstructure:"ENABLED" yaml:"enabled"`
	Address      string `mapstructure:"ADDRESS" yaml:"address"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	DB           int    `mapstructure:"DB" yaml:"db"`
	UseTLS       bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
	PoolSize     int    `mapstructure:"POOL_SIZE" yaml:"pool_size"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS" yaml:"min_idle_conns"`
}

// DeliveryConfig holds configuration for push token delivery to the product
// backend.
type DeliveryConfig struct {
	// BaseURL is the product backend base URL, e.g. https://api.example.com.
	BaseURL string `mapstructure:"BASE_URL" yaml:"base_url"`
	// TokenPath is the registration endpoint path.
	TokenPath string `mapstructure:"TOKEN_PATH" yaml:"token_path"`
	// TokenFieldName is the JSON field name the backend expects for the push
	// token. Integration examples disagree on casing (fcmToken vs FcmToken),
	// so it is configurable rather than hardcoded.
	TokenFieldName string `mapstructure:"TOKEN_FIELD_NAME" yaml:"token_field_name"`
	// MaxAttempts bounds the number of send attempts for retryable failures.
	MaxAttempts int `mapstructure:"MAX_ATTEMPTS" yaml:"max_attempts"`
	// TimeoutSeconds is the HTTP client timeout per attempt.
	TimeoutSeconds int `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
}

// BridgeConfig holds reconciler behavior switches.
type BridgeConfig struct {
	// AllowLegacyMessages enables the shape-heuristic fallback for bridge
	// messages that lack the tokenType discriminant.
	AllowLegacyMessages bool `mapstructure:"ALLOW_LEGACY_MESSAGES" yaml:"allow_legacy_messages"`
	// LoginRoute is the hosted page route treated as the login view for
	// implicit-logout detection.
	LoginRoute string `mapstructure:"LOGIN_ROUTE" yaml:"login_route"`
	// DedupeTTLSeconds is how long a displayed notification message ID is
	// remembered.
	DedupeTTLSeconds int `mapstructure:"DEDUPE_TTL_SECONDS" yaml:"dedupe_ttl_seconds"`
}

// Config is the root configuration object.
type Config struct {
	Server   ServerConfig   `mapstructure:"SERVER"`
	Redis    RedisConfig    `mapstructure:"REDIS"`
	Delivery DeliveryConfig `mapstructure:"DELIVERY"`
	Bridge   BridgeConfig   `mapstructure:"BRIDGE"`
	LogLevel string         `mapstructure:"LOG_LEVEL"`
}

// LoadConfig reads configuration from the environment, applies defaults and
// validates the result.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8170")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("REDIS.ENABLED", true)
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 3)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)
	v.SetDefault("DELIVERY.TOKEN_PATH", "/api/User/FcmToken")
	v.SetDefault("DELIVERY.TOKEN_FIELD_NAME", "fcmToken")
	v.SetDefault("DELIVERY.MAX_ATTEMPTS", 3)
	v.SetDefault("DELIVERY.TIMEOUT_SECONDS", 10)
	v.SetDefault("BRIDGE.ALLOW_LEGACY_MESSAGES", true)
	v.SetDefault("BRIDGE.LOGIN_ROUTE", "/login")
	v.SetDefault("BRIDGE.DEDUPE_TTL_SECONDS", 86400)
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind environment variables
	envBindings := [][2]string{
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"REDIS.ENABLED", "REDIS_ENABLED"},
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		{"DELIVERY.BASE_URL", "DELIVERY_BASE_URL"},
		{"DELIVERY.TOKEN_PATH", "DELIVERY_TOKEN_PATH"},
		{"DELIVERY.TOKEN_FIELD_NAME", "DELIVERY_TOKEN_FIELD_NAME"},
		{"DELIVERY.MAX_ATTEMPTS", "DELIVERY_MAX_ATTEMPTS"},
		{"DELIVERY.TIMEOUT_SECONDS", "DELIVERY_TIMEOUT_SECONDS"},
		{"BRIDGE.ALLOW_LEGACY_MESSAGES", "BRIDGE_ALLOW_LEGACY_MESSAGES"},
		{"BRIDGE.LOGIN_ROUTE", "BRIDGE_LOGIN_ROUTE"},
		{"BRIDGE.DEDUPE_TTL_SECONDS", "BRIDGE_DEDUPE_TTL_SECONDS"},
		{"LOG_LEVEL", "LOG_LEVEL"},
	}
	for _, binding := range envBindings {
		if err := v.BindEnv(binding[0], binding[1]); err != nil {
			return nil, fmt.Errorf("failed to bind env var %s: %w", binding[1], err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"delivery_base_url", cfg.Delivery.BaseURL,
		"delivery_max_attempts", cfg.Delivery.MaxAttempts,
		"redis_enabled", cfg.Redis.Enabled,
	)

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Environment != EnvDevelopment && cfg.Server.Environment != EnvProduction {
		return fmt.Errorf("invalid environment: %s", cfg.Server.Environment)
	}

	if cfg.Delivery.BaseURL != "" {
		parsed, err := url.Parse(cfg.Delivery.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid delivery base URL: %s", cfg.Delivery.BaseURL)
		}
	} else if cfg.Server.Environment == EnvProduction {
		return fmt.Errorf("DELIVERY_BASE_URL is required in production")
	}

	if cfg.Delivery.MaxAttempts < 1 {
		return fmt.Errorf("delivery max attempts must be at least 1, got %d", cfg.Delivery.MaxAttempts)
	}

	if !strings.HasPrefix(cfg.Delivery.TokenPath, "/") {
		return fmt.Errorf("delivery token path must start with /: %s", cfg.Delivery.TokenPath)
	}

	if !strings.HasPrefix(cfg.Bridge.LoginRoute, "/") {
		return fmt.Errorf("bridge login route must start with /: %s", cfg.Bridge.LoginRoute)
	}

	return nil
}
