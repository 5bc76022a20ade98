package server

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
	path := filepath.Join(t.TempDir(), "statusd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8000, cfg.ReadBufferSize)
	assert.Equal(t, "http:/index.html", cfg.RedirectLocation)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
addr: "127.0.0.1:9000"
idle_timeout: 5s
poll_timeout: 250ms
server_name: Edge Proxy
`)

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.PollTimeout)
	assert.Equal(t, "Edge Proxy", cfg.ServerName)
	// Untouched keys keep their defaults.
	assert.Equal(t, 8000, cfg.ReadBufferSize)
	assert.Equal(t, 1024, cfg.MaxConnections)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfigBadYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "addr: [unterminated"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "read_buffer_size: 0\n"))

	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"read buffer", func(c *Config) { c.ReadBufferSize = -1 }},
		{"request window", func(c *Config) { c.MaxRequestLineBytes = 0 }},
		{"idle timeout", func(c *Config) { c.IdleTimeout = -time.Second }},
		{"poll timeout", func(c *Config) { c.PollTimeout = 0 }},
		{"max connections", func(c *Config) { c.MaxConnections = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
