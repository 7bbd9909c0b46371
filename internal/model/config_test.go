package model

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, time.Second, cfg.TaskInterval())
	assert.Equal(t, 30*time.Second, cfg.GoogleCheckInterval())
	assert.Equal(t, 10, cfg.Display.PageSize)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "api:\n  base_url: http://localhost:8000\npolling:\n  task_interval_ms: 250\nlog:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/", cfg.API.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.TaskInterval())
	assert.Equal(t, 3, cfg.API.MaxRetries)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("ADSDASH_API_BASE_URL", "http://env.example/")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://env.example/", cfg.API.BaseURL)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := defaultAppConfig()
	cfg.Display.PageSize = 25
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 25, loaded.Display.PageSize)
}
