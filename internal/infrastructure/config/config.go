package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=3000"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// RootURL is the public root the server is reachable at; reported by
	// diagnostics only.
	RootURL           string `env:"ROOT_URL, default=http://localhost:3000"`
	DisableWebsockets bool   `env:"DISABLE_WEBSOCKETS, default=false"`

	JWTSecret string `env:"JWT_SECRET"`
	// TokenTTL bounds the lifetime of issued login tokens. Defaults to 90
	// days, matching the stock account system this replaces.
	TokenTTL   time.Duration `env:"TOKEN_TTL, default=2160h"`
	BcryptCost int           `env:"BCRYPT_COST, default=10"`

	// AdminUsername/AdminPassword drive the startup admin bootstrap. The
	// bootstrap is skipped when the password is empty.
	AdminUsername string `env:"ADMIN_USERNAME, default=admin"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	AuditWorkers int `env:"AUDIT_WORKERS, default=4"`

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URL      string `env:"MONGO_URL, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=checklist_manifesto"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}

// IsDevelopment reports whether the server runs in a development
// environment (pretty logs, relaxed defaults).
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
