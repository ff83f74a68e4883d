package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://fanbroj.net", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Checkout.PollInterval)
	assert.Equal(t, 30, cfg.Checkout.MaxPolls)
	assert.Equal(t, "monthly", cfg.Checkout.DefaultPlan)
	assert.True(t, cfg.Checkout.OpenBrowser)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Database.WALMode)
	assert.False(t, cfg.Advanced.Debug)
}

func TestLoad(t *testing.T) {
	t.Run("explicitly named missing file is an error", func(t *testing.T) {
		_, _, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
		assert.Error(t, err)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `api:
  base_url: http://localhost:3000
checkout:
  poll_interval: 5s
  max_polls: 10
  default_plan: yearly
  open_browser: false
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, _, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:3000", cfg.API.BaseURL)
		assert.Equal(t, 5*time.Second, cfg.Checkout.PollInterval)
		assert.Equal(t, 10, cfg.Checkout.MaxPolls)
		assert.Equal(t, "yearly", cfg.Checkout.DefaultPlan)
		assert.False(t, cfg.Checkout.OpenBrowser)
		// Untouched sections keep their defaults.
		assert.Equal(t, 30*time.Second, cfg.API.Timeout)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("api: [not: valid"), 0644))

		_, _, err := Load(path)
		assert.Error(t, err)
	})
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fanbroj configuration")
	assert.Contains(t, string(data), "base_url: https://fanbroj.net")

	// The written file must load back cleanly.
	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Checkout.MaxPolls, cfg.Checkout.MaxPolls)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input).String())
		})
	}
}
