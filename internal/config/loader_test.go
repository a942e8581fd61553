package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9200", cfg.Store.Endpoint)
	assert.True(t, cfg.Store.VerifySSL)
	assert.False(t, cfg.DeadLetter.Enabled)
	assert.Equal(t, 1000, cfg.Load.BatchSize)
	assert.Equal(t, 4, cfg.Load.Workers)
	assert.Equal(t, int64(1_000_000), cfg.Safety.CleanupThreshold)
	assert.InDelta(t, 10.0, cfg.Safety.DriftThreshold, 0.001)
	assert.Equal(t, ".searchload/ledger.json", cfg.LedgerPath)
	assert.Equal(t, "localhost:8080", cfg.Server.Listen)
}

func TestLoadFromFile(t *testing.T) {
	content := `store:
  endpoint: https://search.internal:9200
  username: loader
load:
  batch_size: 250
safety:
  drift_threshold: 5
`
	path := filepath.Join(t.TempDir(), "searchload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://search.internal:9200", cfg.Store.Endpoint)
	assert.Equal(t, "loader", cfg.Store.Username)
	assert.Equal(t, 250, cfg.Load.BatchSize)
	assert.InDelta(t, 5.0, cfg.Safety.DriftThreshold, 0.001)

	// Unset values keep defaults.
	assert.Equal(t, 4, cfg.Load.Workers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SEARCHLOAD_STORE_ENDPOINT", "https://env.example:9200")
	t.Setenv("SEARCHLOAD_LOAD_WORKERS", "16")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://env.example:9200", cfg.Store.Endpoint)
	assert.Equal(t, 16, cfg.Load.Workers)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty endpoint", func(c *Config) { c.Store.Endpoint = "" }},
		{"zero batch size", func(c *Config) { c.Load.BatchSize = 0 }},
		{"zero workers", func(c *Config) { c.Load.Workers = 0 }},
		{"zero cleanup threshold", func(c *Config) { c.Safety.CleanupThreshold = 0 }},
		{"drift over 100", func(c *Config) { c.Safety.DriftThreshold = 150 }},
		{"dlq enabled without url", func(c *Config) {
			c.DeadLetter.Enabled = true
			c.DeadLetter.QueueURL = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
