package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 5, cfg.Sync.Workers)
	assert.Equal(t, 50, cfg.Sync.PageSize)
	assert.Equal(t, 5, cfg.Sync.ItemConcurrency)
	assert.Equal(t, 3, cfg.Sync.RetryCount)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.RetryBackoff)
	assert.Equal(t, 24, cfg.Cache.TTLHours)
	assert.Equal(t, 5, cfg.Cache.ProbeBatchSize)
	assert.Equal(t, "2024-07", cfg.Marketplaces.Shopify.APIVersion)
	assert.Equal(t, "vtexcommercestable", cfg.Marketplaces.VTEX.Environment)
	assert.False(t, cfg.Archive.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9000
  mode: debug
database:
  driver: postgres
  host: db.internal
  port: 5433
  name: marketsync
sync:
  workers: 2
  item_concurrency: 10
cache:
  ttl_hours: 6
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 2, cfg.Sync.Workers)
	assert.Equal(t, 10, cfg.Sync.ItemConcurrency)
	assert.Equal(t, 6, cfg.Cache.TTLHours)
	// Untouched keys keep their defaults.
	assert.Equal(t, 50, cfg.Sync.PageSize)
	assert.Equal(t, 5, cfg.Cache.ProbeBatchSize)
}

func TestLoadEnvOverridesSecrets(t *testing.T) {
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("ARCHIVE_ACCESS_KEY", "AKIATEST")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, "AKIATEST", cfg.Archive.AccessKey)
}

func TestDatabaseDSN(t *testing.T) {
	sqlite := &DatabaseConfig{Driver: "sqlite", Path: "./data/app.db"}
	assert.Equal(t, "./data/app.db", sqlite.DSN())

	pg := &DatabaseConfig{
		Driver:   "postgres",
		Host:     "db.internal",
		Port:     5433,
		User:     "sync",
		Password: "pw",
		Name:     "marketsync",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=db.internal port=5433 user=sync password=pw dbname=marketsync sslmode=disable", pg.DSN())
}
