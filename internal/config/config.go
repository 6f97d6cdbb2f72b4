package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	// local development only, never accepted outside dev/test
	devJWTSecret = "dev-insecure-jwt-secret"
)

type Config struct {
	Env         string `env:"APP_ENV" envDefault:"dev"`
	Port        int    `env:"PORT" envDefault:"8080"`
	APIPrefix   string `env:"API_PREFIX" envDefault:"/api/users"`
	DBURL       string `env:"DATABASE_URL"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"true"`

	JWTSecret   string `env:"JWT_SECRET"`
	BcryptCost  int    `env:"BCRYPT_COST" envDefault:"10"`
	AuthzPolicy string `env:"AUTHZ_POLICY" envDefault:"any_authenticated"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	MaxBodyBytes       int64    `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"userauth"`

	SeedUserEmail    string `env:"SEED_USER_EMAIL"`
	SeedUserPassword string `env:"SEED_USER_PASSWORD"`
	SeedUserName     string `env:"SEED_USER_NAME" envDefault:"Seed User"`
}

// IsDevelopment reports whether insecure local defaults may be used.
func (c Config) IsDevelopment() bool {
	return c.Env == "dev" || c.Env == "test"
}

// Load reads an optional .env file, then the process environment.
// Outside dev/test a missing JWT_SECRET or DATABASE_URL is an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, c.StoreDriver)
	}

	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET is required when APP_ENV=%s", c.Env)
		}
		c.JWTSecret = devJWTSecret
	}

	if c.DBURL == "" && c.StoreDriver == StoreDriverPostgres {
		if !c.IsDevelopment() {
			return fmt.Errorf("DATABASE_URL is required when APP_ENV=%s", c.Env)
		}
		c.DBURL = buildDBURL()
	}

	switch c.AuthzPolicy {
	case "any_authenticated", "owner_only":
	default:
		return fmt.Errorf("AUTHZ_POLICY must be any_authenticated or owner_only, got %q", c.AuthzPolicy)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}

	c.APIPrefix = "/" + strings.Trim(c.APIPrefix, "/")

	return nil
}

// UsesDevSecret is true when the JWT secret fell back to the built-in dev value.
func (c Config) UsesDevSecret() bool {
	return c.JWTSecret == devJWTSecret
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "userauth")
	pass := getEnv("DB_PASSWORD", "userauth")
	name := getEnv("DB_NAME", "userauth")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
