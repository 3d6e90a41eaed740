// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"time"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config captures everything the server process needs at startup. The
// retention window is read once here; changing it takes effect on the next
// process start.
type Config struct {
	Addr         string
	StoreBackend string
	DatabaseURL  string
	RedisURL     string

	RetentionWindow time.Duration
	SweepSchedule   string
	SweepBatchSize  int

	RequestTimeout time.Duration
	JWTSigningKey  string
}

// FromEnv reads the configuration, applying development defaults. The store
// backend is inferred from which connection URL is set unless STORE_BACKEND
// overrides it.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("PACTUM_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		RetentionWindow: time.Duration(envInt("RETENTION_DAYS", 30)) * 24 * time.Hour,
		SweepSchedule:   envOr("RETENTION_SWEEP_SCHEDULE", "@daily"),
		SweepBatchSize:  envInt("RETENTION_SWEEP_BATCH", 500),
		RequestTimeout:  time.Duration(envInt("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		JWTSigningKey:   os.Getenv("JWT_SIGNING_KEY"),
	}

	cfg.StoreBackend = os.Getenv("STORE_BACKEND")
	if cfg.StoreBackend == "" {
		switch {
		case cfg.DatabaseURL != "":
			cfg.StoreBackend = BackendPostgres
		case cfg.RedisURL != "":
			cfg.StoreBackend = BackendRedis
		default:
			cfg.StoreBackend = BackendMemory
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
