// Package config loads the service configuration from the environment.
//
// A `.env` file in the working directory is loaded first when present; real
// environment variables take precedence over it.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is the root configuration of the service.
type Config struct {
	Port             int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	StoreDriver      string        `mapstructure:"store_driver" validate:"oneof=mongo postgres sqlite memory"`
	MongoURI         string        `mapstructure:"mongo_uri" validate:"required_if=StoreDriver mongo"`
	MongoDatabase    string        `mapstructure:"mongo_database"`
	DatabaseDSN      string        `mapstructure:"database_dsn" validate:"required_if=StoreDriver postgres,required_if=StoreDriver sqlite"`
	RabbitMQURL      string        `mapstructure:"rabbitmq_url"`
	JWTSecret        string        `mapstructure:"jwt_secret"`
	RateLimitRPS     float64       `mapstructure:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst   int           `mapstructure:"rate_limit_burst" validate:"gte=1"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
	LogLevel         string        `mapstructure:"log_level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogFormat        string        `mapstructure:"log_format" validate:"oneof=json console"`
	CORSAllowOrigins string        `mapstructure:"cors_allow_origins"`
}

var defaults = map[string]interface{}{
	"PORT":               3000,
	"STORE_DRIVER":       DriverMongo,
	"MONGO_URI":          "mongodb://127.0.0.1:27017/catalog",
	"MONGO_DATABASE":     "",
	"DATABASE_DSN":       "file:catalog.db",
	"RABBITMQ_URL":       "",
	"JWT_SECRET":         "",
	"RATE_LIMIT_RPS":     0.0,
	"RATE_LIMIT_BURST":   20,
	"REQUEST_TIMEOUT":    10 * time.Second,
	"LOG_LEVEL":          "info",
	"LOG_FORMAT":         "json",
	"CORS_ALLOW_ORIGINS": "*",
}

// Load reads the configuration from environment variables, applying defaults
// for anything unset, and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// EventsEnabled reports whether product events are published.
func (c *Config) EventsEnabled() bool {
	return c.RabbitMQURL != ""
}

// AuthEnabled reports whether write routes require a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}
