package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: abc\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.CoreConfig().Telegram.Token)
	assert.Equal(t, int64(50<<20), cfg.Files.MaxSizeBytes())
	assert.Equal(t, 20, cfg.Files.MaxMergeFiles)
	assert.Equal(t, 100, cfg.Files.MaxImages)
	assert.Equal(t, 24*time.Hour, cfg.Files.SweepAge)
	assert.Equal(t, BackendMemory, cfg.Session.Backend)
	assert.Equal(t, BackendMemory, cfg.Subscribers.Backend)
	assert.Equal(t, "en", cfg.I18n.DefaultLanguage)
	assert.False(t, cfg.UsesRedis())
	assert.False(t, cfg.UsesDatabase())
}

func TestLoadSectionsAndEnv(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: abc
files:
  max_size_mb: 20
  sweep_interval: 30m
session:
  backend: Redis
  ttl: 2h
redis:
  addr: localhost:6379
database:
  host: db
  name: pdfbot
ops:
  timeout: 90s
`)
	t.Setenv("OPS_WORKERS", "8")
	t.Setenv("SUBSCRIBERS_BACKEND", "redis")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Files.MaxSizeMB)
	assert.Equal(t, 30*time.Minute, cfg.Files.SweepInterval)
	assert.Equal(t, BackendRedis, cfg.Session.Backend)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, BackendRedis, cfg.Subscribers.Backend)
	assert.Equal(t, 90*time.Second, cfg.Ops.Timeout)
	assert.Equal(t, 8, cfg.Ops.Workers)
	assert.True(t, cfg.UsesRedis())
	assert.False(t, cfg.UsesDatabase())
}

func TestDatabaseDefaultsSubscribersToPostgres(t *testing.T) {
	cfg := &AppConfig{}
	cfg.Database.Host = "db"
	cfg.Database.Name = "pdfbot"

	require.NoError(t, Normalize(cfg))
	assert.Equal(t, BackendPostgres, cfg.Subscribers.Backend)
	assert.True(t, cfg.UsesDatabase())
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]AppConfig{
		"session backend":   {Session: SessionConfig{Backend: "etcd"}},
		"redis addr":        {Session: SessionConfig{Backend: "redis"}},
		"postgres needs db": {Subscribers: SubscribersConfig{Backend: "postgres"}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Normalize(&cfg))
		})
	}
}
