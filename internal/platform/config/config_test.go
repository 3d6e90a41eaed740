package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("STORE_BACKEND", "")

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 30*24*time.Hour, cfg.RetentionWindow)
	assert.Equal(t, "@daily", cfg.SweepSchedule)
	assert.Equal(t, 500, cfg.SweepBatchSize)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
}

func TestFromEnvInfersBackendFromURLs(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/pactum")
	cfg := FromEnv()
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)

	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	cfg = FromEnv()
	assert.Equal(t, BackendRedis, cfg.StoreBackend)
}

func TestFromEnvExplicitBackendWins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/pactum")
	t.Setenv("STORE_BACKEND", BackendMemory)

	cfg := FromEnv()
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PACTUM_ADDR", ":9090")
	t.Setenv("RETENTION_DAYS", "7")
	t.Setenv("RETENTION_SWEEP_BATCH", "100")

	cfg := FromEnv()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 7*24*time.Hour, cfg.RetentionWindow)
	assert.Equal(t, 100, cfg.SweepBatchSize)
}

func TestFromEnvIgnoresInvalidInts(t *testing.T) {
	t.Setenv("RETENTION_DAYS", "not-a-number")
	t.Setenv("RETENTION_SWEEP_BATCH", "-5")

	cfg := FromEnv()
	assert.Equal(t, 30*24*time.Hour, cfg.RetentionWindow)
	assert.Equal(t, 500, cfg.SweepBatchSize)
}
