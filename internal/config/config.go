// Package config loads the service configuration from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	EventSystemLocal = "local"
	EventSystemNone  = "none"
)

type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8000"`
	// GRPCAddr serves grpc.health.v1; empty disables it.
	GRPCAddr string `envconfig:"GRPC_ADDR" default:":9090"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisURL    string `envconfig:"REDIS_URL" required:"true"`

	SecretKey        string        `envconfig:"SECRET_KEY" required:"true"`
	RefreshSecretKey string        `envconfig:"REFRESH_SECRET_KEY" required:"true"`
	AccessTokenTTL   time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"30m"`
	RefreshTokenTTL  time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"168h"`

	EventSystem         string        `envconfig:"EVENT_SYSTEM" default:"local"`
	EventHandlerTimeout time.Duration `envconfig:"EVENT_HANDLER_TIMEOUT" default:"5s"`
	EventHistorySize    int           `envconfig:"EVENT_HISTORY_SIZE" default:"1000"`

	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"1h"`

	HealthInterval  time.Duration `envconfig:"HEALTH_INTERVAL" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, errors.Wrap(err, "cannot load config")
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreDriverMemory:
	default:
		return errors.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.EventSystem {
	case EventSystemLocal, EventSystemNone:
	default:
		return errors.Errorf("unknown EVENT_SYSTEM %q", c.EventSystem)
	}

	if c.EventHistorySize < 0 {
		return errors.New("EVENT_HISTORY_SIZE cannot be negative")
	}
	if c.EventHandlerTimeout <= 0 {
		return errors.New("EVENT_HANDLER_TIMEOUT must be positive")
	}
	if c.CacheTTL <= 0 {
		return errors.New("CACHE_TTL must be positive")
	}
	return nil
}
