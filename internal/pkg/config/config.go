package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
	Audit AuditConfig
}

// AuthConfig holds token signing and password hashing settings. The two
// secrets must differ; security.NewTokenIssuer enforces it.
type AuthConfig struct {
	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET, required"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL,    default=15m"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET, required"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL,   default=168h"`
	// HashCostFactor is a bcrypt cost, or an argon2id parameter string.
	HashCostFactor string `env:"HASH_COST_FACTOR, default=10"`
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=accounts"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr         string        `env:"REDIS_ADDR,     default=localhost:6379"`
	DB           int           `env:"REDIS_DB,       default=0"`
	UserCacheTTL time.Duration `env:"USER_CACHE_TTL, default=5m"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	return &cfg, nil
}
