package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds portal configuration
type Config struct {
	Port        string `validate:"required,numeric"`
	Environment string // development, staging, production
	LogLevel    string `validate:"oneof=debug info warn warning error"`
	LogFormat   string `validate:"oneof=json text"`

	BackendURL     string        `validate:"required,url"`
	BackendTimeout time.Duration `validate:"gt=0"`

	StorageDriver    string        `validate:"oneof=memory sqlite postgres redis"`
	SQLitePath       string        `validate:"required_if=StorageDriver sqlite"`
	DatabaseURL      string        `validate:"required_if=StorageDriver postgres"`
	RedisURL         string        `validate:"required_if=StorageDriver redis"`
	StorageRetention time.Duration `validate:"gt=0"`

	SessionInitTimeout       time.Duration `validate:"gt=0"`
	ClientIdleTTL            time.Duration `validate:"gt=0"`
	NotificationPollInterval time.Duration `validate:"gt=0"`

	RabbitMQURL string `validate:"omitempty,url"`

	LoginPath         string `validate:"required,startswith=/"`
	StaticDir         string
	AllowedOrigins    string
	OpenAPISpecPath   string
	OpenAPIValidation bool

	AuthRateLimit float64 `validate:"gt=0"`
	AuthRateBurst int     `validate:"gt=0"`
}

// Load reads configuration from the environment (and an optional .env file) and validates it
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:   strings.ToLower(getEnv("LOG_FORMAT", "json")),

		BackendURL:     strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:3000"), "/"),
		BackendTimeout: getDuration("BACKEND_TIMEOUT", 15*time.Second),

		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", "sqlite")),
		SQLitePath:       getEnv("SQLITE_PATH", "naspac-portal.db"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		StorageRetention: getDuration("STORAGE_RETENTION", 30*24*time.Hour),

		SessionInitTimeout:       getDuration("SESSION_INIT_TIMEOUT", 10*time.Second),
		ClientIdleTTL:            getDuration("CLIENT_IDLE_TTL", 30*time.Minute),
		NotificationPollInterval: getDuration("NOTIFICATION_POLL_INTERVAL", 30*time.Second),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		LoginPath:         getEnv("LOGIN_PATH", "/personnel-login"),
		StaticDir:         getEnv("STATIC_DIR", "web"),
		AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080"),
		OpenAPISpecPath:   getEnv("OPENAPI_SPEC_PATH", "artifacts/openapi.yaml"),
		OpenAPIValidation: getBool("OPENAPI_VALIDATION", false),

		AuthRateLimit: getFloat("AUTH_RATE_LIMIT", 5),
		AuthRateBurst: getInt("AUTH_RATE_BURST", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks struct rules first, then production-only rules
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if c.IsProduction() {
		if c.StorageDriver == "memory" {
			return errors.New("STORAGE_DRIVER=memory loses every session on restart and is not allowed in production")
		}
		if !strings.HasPrefix(c.BackendURL, "https://") {
			slog.Warn("BACKEND_URL does not use HTTPS in production", "backend_url", c.BackendURL)
		}
		for _, origin := range strings.Split(c.AllowedOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" && !strings.HasPrefix(origin, "https://") {
				slog.Warn("ALLOWED_ORIGINS entry does not use HTTPS in production", "origin", origin)
			}
		}
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == ""
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatFieldError(e))
	}
	return errors.New(strings.Join(messages, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, strings.Replace(e.Param(), " ", "=", 1))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "numeric":
		return fmt.Sprintf("%s must be numeric", field)
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be positive", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("invalid duration, using default", "key", key, "value", value, "default", defaultValue)
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
