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
	assert.Equal(t, "127.0.0.1:3000", cfg.Server.Addr)
	assert.Equal(t, "INR", cfg.Payments.Currency)
	assert.Equal(t, time.Second, cfg.Payments.NotifyDelay)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  addr: ":8080"
transport:
  api_key: key_abc
  api_secret: secret_xyz
payments:
  notify_delay: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "key_abc", cfg.Transport.APIKey)
	assert.Equal(t, "secret_xyz", cfg.Transport.APISecret)
	assert.Equal(t, 2*time.Second, cfg.Payments.NotifyDelay)
	// untouched keys keep their defaults
	assert.Equal(t, "INR", cfg.Payments.Currency)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CHATAPP_GATEWAY_KEY_SECRET", "env_secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env_secret", cfg.Gateway.KeySecret)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "data/chat.db", cfg.Store.Path)
}
