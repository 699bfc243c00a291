package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/msolis/catfetch"
	"github.com/msolis/catfetch/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catfetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
targets:
  - https://shop.example.com/catalog/9
output_format: csv
max_retries: 5
retry_delay: 2s
run_timeout: 5m
`), 0644))

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://shop.example.com/catalog/9"}, cfg.Targets)
	assert.Equal(t, "csv", cfg.OutputFormat)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	assert.Equal(t, 5*time.Minute, cfg.RunTimeout)
	// Unset fields keep their defaults
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, 4, cfg.Concurrency)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catfetch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_dir: from-file\n"), 0644))
	t.Setenv("CATFETCH_OUTPUT_DIR", "from-env")
	t.Setenv("CATFETCH_CACHE_ENABLED", "false")

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.OutputDir)
	assert.False(t, cfg.CacheEnabled)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown output format", "output_format: xml"},
		{"negative retries", "max_retries: -1"},
		{"zero retries", "max_retries: 0"},
		{"zero concurrency", "concurrency: 0"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catfetch.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))

			_, err := config.Load(path)

			assert.Equal(t, catfetch.EINVALID, catfetch.ErrorCode(err))
		})
	}
}

func TestLoad_MissingFileIsAnError(t *testing.T) {
	_, err := config.Load("/nonexistent/catfetch.yaml")

	assert.Equal(t, catfetch.EINVALID, catfetch.ErrorCode(err))
}

func TestConfig_RetryDelays(t *testing.T) {
	cfg := config.Default()
	cfg.MaxRetries = 3
	cfg.RetryDelay = time.Second

	// MaxRetries counts total attempts, so 3 attempts need 2 delays.
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, cfg.RetryDelays())

	// A single attempt means no delays, but the schedule must stay
	// non-nil so the driver does not substitute its defaults.
	cfg.MaxRetries = 1
	require.NotNil(t, cfg.RetryDelays())
	assert.Empty(t, cfg.RetryDelays())
}
