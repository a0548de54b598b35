package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("DB_DSN", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("MATRIX_CACHE_TTL", "")
	t.Setenv("PASS_THRESHOLD", "")
	t.Setenv("SAFETY_FACTOR", "")
	t.Setenv("SEED_CATALOG", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite://ct_install.db", cfg.DBDSN)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "", cfg.Redis.Addr)
	assert.Equal(t, 10*time.Minute, cfg.MatrixCacheTTL)
	assert.Nil(t, cfg.PassThreshold)
	assert.True(t, cfg.SeedCatalog)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, 70.0, p.PassThreshold)
	assert.Equal(t, 1.5, p.SafetyFactor)
}

func TestLoad_MissingSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("DB_DSN", "postgres://ct:ct@db:5432/ct?sslmode=disable")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("MATRIX_CACHE_TTL", "90s")
	t.Setenv("PASS_THRESHOLD", "80")
	t.Setenv("SAFETY_FACTOR", "2")
	t.Setenv("SEED_CATALOG", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://ct:ct@db:5432/ct?sslmode=disable", cfg.DBDSN)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 90*time.Second, cfg.MatrixCacheTTL)
	assert.False(t, cfg.SeedCatalog)

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, 80.0, p.PassThreshold)
	assert.Equal(t, 2.0, p.SafetyFactor)
}

func TestLoad_InvalidNumbers(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("PASS_THRESHOLD", "seventy")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_DiscordNeedsBothValues(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("DISCORD_CHANNEL_ID", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestPolicy_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pass_threshold: 60\nsafety_factor: 3\n"), 0o600))

	threshold := 75.0
	cfg := &Config{PolicyFile: path, PassThreshold: &threshold}

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, 75.0, p.PassThreshold)
	assert.Equal(t, 3.0, p.SafetyFactor)
}

func TestPolicy_RejectsOutOfRangeOverride(t *testing.T) {
	threshold := 150.0
	cfg := &Config{PassThreshold: &threshold}

	_, err := cfg.Policy()
	assert.Error(t, err)
}
