// Package config loads runtime settings from the environment (and an optional .env file).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Log       LogConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Port string `validate:"required"`
	Env  string `validate:"required"`
}

// DatabaseConfig selects the appointment and user storage.
type DatabaseConfig struct {
	Driver string `validate:"oneof=memory sqlite postgres"`
	DSN    string `validate:"required_unless=Driver memory"`
}

// AuthConfig defines token and password parameters.
type AuthConfig struct {
	JWTSecret  string        `validate:"required"`
	TokenTTL   time.Duration `validate:"gt=0"`
	BcryptCost int           `validate:"gte=4,lte=31"`
	// Required protects the appointment routes with a bearer token.
	Required bool
}

// RateLimitConfig bounds register/login attempts per client IP.
type RateLimitConfig struct {
	RPS   float64 `validate:"gt=0"`
	Burst int     `validate:"gt=0"`
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int `validate:"gte=0"`
}

// RabbitMQConfig holds the broker URL. An empty URL disables event publishing.
type RabbitMQConfig struct {
	URL string
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

// DevJWTSecret is the signing secret used when JWT_SECRET is unset. It is
// refused when APP_ENV is production.
const DevJWTSecret = "dev-secret"

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "clinic.db")
	v.SetDefault("JWT_SECRET", DevJWTSecret)
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("AUTH_REQUIRED", true)
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Port: v.GetString("APP_PORT"),
			Env:  v.GetString("APP_ENV"),
		},
		Database: DatabaseConfig{
			Driver: v.GetString("DB_DRIVER"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Auth: AuthConfig{
			JWTSecret:  v.GetString("JWT_SECRET"),
			TokenTTL:   v.GetDuration("TOKEN_TTL"),
			BcryptCost: v.GetInt("BCRYPT_COST"),
			Required:   v.GetBool("AUTH_REQUIRED"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RabbitMQ: RabbitMQConfig{
			URL: v.GetString("RABBITMQ_URL"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.App.Env == "production" && cfg.Auth.JWTSecret == DevJWTSecret {
		return nil, fmt.Errorf("invalid configuration: JWT_SECRET must be set in production")
	}
	return cfg, nil
}
