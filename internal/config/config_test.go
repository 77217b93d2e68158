package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp isolates the test from any .env in the package directory.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TASKDESK_ADDR", "TASKDESK_DB_PATH", "TASKDESK_STATIC_DIR", "TASKDESK_PUBLIC_URL",
		"TASKDESK_WEBHOOK_URL", "TASKDESK_WEBHOOK_TIMEOUT", "TASKDESK_SWEEP_INTERVAL",
		"TASKDESK_DUE_SOON_WINDOW", "TASKDESK_LOG_LEVEL",
	} {
		key := k
		if prev, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { _ = os.Setenv(key, prev) })
		} else {
			t.Cleanup(func() { _ = os.Unsetenv(key) })
		}
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadLayers(t *testing.T) {
	dir := chdirTemp(t)
	clearEnv(t)

	path := filepath.Join(dir, "taskdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9000\"\nwebhook_url: https://hooks.example.com/a\nsweep_interval: 2m\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TASKDESK_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("TASKDESK_ADDR", ":9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Addr, "environment beats file")
	assert.Equal(t, "https://hooks.example.com/a", cfg.WebhookURL)
	assert.Equal(t, 2*time.Minute, cfg.SweepInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadMissingFileIsFine(t *testing.T) {
	dir := chdirTemp(t)
	clearEnv(t)
	_, err := Load(filepath.Join(dir, "absent.yaml"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.WebhookURL = "ftp://example.com"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.WebhookURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.WebhookTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.WebhookURL = "http://localhost:5678/webhook/chat"
	assert.NoError(t, cfg.Validate())
}
