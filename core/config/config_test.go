package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesEnvOverride(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: from-file\n  run_mode: polling\nrate_limit:\n  exclude_updates: [Upload, ' callback']\n")
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, 10, cfg.Logging.MaxSizeMB)
	assert.Equal(t, 5, cfg.Logging.MaxBackups)
	assert.Equal(t, []string{UpdateUpload, UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-only")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-only", cfg.Telegram.Token)
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "telegram: [\n"))
	assert.Error(t, err)
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]Config{
		"no token":            {},
		"bad mode":            {Telegram: TelegramConfig{Token: "x", RunMode: "carrier-pigeon"}},
		"webhook without url": {Telegram: TelegramConfig{Token: "x", RunMode: RunModeWebhook}},
		"bad exclude": {
			Telegram:  TelegramConfig{Token: "x"},
			RateLimit: RateLimitConfig{ExcludeUpdates: []string{"edited_message"}},
		},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Normalize(&cfg))
		})
	}
}
