package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the service.
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Session  SessionConfig
	Upstream UpstreamConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RedisConfig holds Redis configuration for the durable session backend.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// ConfigDir is where the credential bundle (auth.json) lives.
	ConfigDir string
	// RequireSignature makes the request-signature check mandatory for
	// protected endpoints instead of opt-in via headers.
	RequireSignature bool
}

// SessionConfig holds conversation-session configuration.
type SessionConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

// UpstreamConfig holds configuration for the upstream AI service.
// Values left empty fall back to the CLI config file (~/.qwen-code/config.json).
type UpstreamConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	// AllowedOrigins are the origins accepted by CORS and the
	// client-token same-origin check.
	AllowedOrigins []string
	// TrustedDomain additionally allows the apex domain and any of its
	// subdomains, matched strictly to prevent evil-<domain> bypasses.
	TrustedDomain string
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level       string
	Environment string
}

const defaultSystemPrompt = "You are the Huang family genealogy assistant. You specialize in " +
	"the origins, history and culture of the Huang surname, generation-poem lookups, and " +
	"ancestry research guidance."

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("PORT", 3000),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
		},
		Auth: AuthConfig{
			ConfigDir:        getEnv("AUTH_CONFIG_DIR", "config"),
			RequireSignature: getEnvBool("AUTH_REQUIRE_SIGNATURE", false),
		},
		Session: SessionConfig{
			TTL:             getEnvDuration("SESSION_TTL", 24*time.Hour),
			CleanupInterval: getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour),
		},
		Upstream: UpstreamConfig{
			APIKey:       getEnv("QWEN_API_KEY", ""),
			BaseURL:      getEnv("QWEN_BASE_URL", "https://coding.dashscope.aliyuncs.com/v1"),
			Model:        getEnv("QWEN_MODEL", ""),
			SystemPrompt: getEnv("QWEN_SYSTEM_PROMPT", defaultSystemPrompt),
			Timeout:      getEnvDuration("QWEN_TIMEOUT", 60*time.Second),
		},
		Security: SecurityConfig{
			AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			}),
			TrustedDomain: getEnv("TRUSTED_DOMAIN", "hxfund.cn"),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
	}
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
