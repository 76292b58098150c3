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

	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, 6*time.Second, cfg.API.PollInterval)
	assert.Equal(t, "chat-client.db", cfg.Store.Path)
	assert.Equal(t, "marketplace.events", cfg.Telemetry.Exchange)
	assert.Equal(t, 8080, cfg.Stub.Port)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat-client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"api:\n  base_url: https://api.example.com\n  poll_interval: 10s\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.PollInterval)

	t.Setenv("CHAT_API_BASE_URL", "https://staging.example.com")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com", cfg.API.BaseURL)
}
