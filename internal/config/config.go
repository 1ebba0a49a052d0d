// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Storage providers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StorageAWS      = "aws"
	StoragePostgres = "postgres"
)

// Auth providers.
const (
	AuthGoogle = "google"
	AuthNone   = "none"
)

// Config is the full process configuration. Every knob is an environment
// variable so the same binary runs locally, in a container, and in Lambda.
type Config struct {
	StorageProvider       string `env:"STORAGE_PROVIDER" envDefault:"memory"`
	DBPath                string `env:"DB_PATH"          envDefault:"./data/shortlinks.db"`
	DatabaseURL           string `env:"DATABASE_URL"`
	DynamoTableShortLinks string `env:"DYNAMO_TABLE_SHORTLINKS"`
	DynamoTableCounters   string `env:"DYNAMO_TABLE_COUNTERS"`

	AuthProvider        string `env:"AUTH_PROVIDER"           envDefault:"google"`
	GoogleOAuthClientID string `env:"GOOGLE_OAUTH_CLIENT_ID"`
	AllowedDomain       string `env:"ALLOWED_DOMAIN"`
	// SkipSignature disables ID token signature verification. Local
	// development only.
	SkipSignature bool `env:"GOOGLE_AUTH_INSECURE_SKIP_SIGNATURE"`

	ShortlinkDomain string `env:"SHORTLINK_DOMAIN"`
	CORSAllowOrigin string `env:"CORS_ALLOW_ORIGIN" envDefault:"*"`
	Port            int    `env:"PORT"              envDefault:"3001"`

	// RedisAddr enables the read-through resolve cache when set.
	RedisAddr string `env:"REDIS_ADDR"`

	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads and validates the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageProvider {
	case StorageMemory, StorageSQLite:
	case StorageAWS:
		if c.DynamoTableShortLinks == "" || c.DynamoTableCounters == "" {
			return fmt.Errorf("STORAGE_PROVIDER=aws requires DYNAMO_TABLE_SHORTLINKS and DYNAMO_TABLE_COUNTERS")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("STORAGE_PROVIDER=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown STORAGE_PROVIDER %q", c.StorageProvider)
	}

	switch c.AuthProvider {
	case AuthGoogle:
		if c.GoogleOAuthClientID == "" {
			return fmt.Errorf("AUTH_PROVIDER=google requires GOOGLE_OAUTH_CLIENT_ID")
		}

		if c.AllowedDomain == "" {
			return fmt.Errorf("AUTH_PROVIDER=google requires ALLOWED_DOMAIN")
		}
	case AuthNone:
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}

	return nil
}
