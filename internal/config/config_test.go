package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/ferrotree/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FERRO_LOG_LEVEL", "FERRO_LOG_JSON", "FERRO_WORKER_COUNT",
		"FERRO_MAX_SEARCH_RESULTS", "FERRO_SCRIPTS_DIR",
	} {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
	assert.Equal(t, 0, cfg.WorkerCount)
	assert.Equal(t, 50, cfg.MaxSearchResults)
	assert.Equal(t, "scripts", cfg.ScriptsDir)
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	clearEnv(t)
	os.Setenv("FERRO_LOG_LEVEL", "debug")
	os.Setenv("FERRO_MAX_SEARCH_RESULTS", "10")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 10, cfg.MaxSearchResults)
}

func TestLoadIgnoresMissingEnvFile(t *testing.T) {
	clearEnv(t)
	_, err := config.Load("/nonexistent/path/.env")
	assert.NoError(t, err)
}

func TestLoadIgnoresInvalidNumericEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("FERRO_MAX_SEARCH_RESULTS", "not-a-number")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxSearchResults, "invalid value should fall back to default")
}

func TestApplyFlagsOverridesOnlySetFields(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.ApplyFlags("", false, false, 0, 0, "")
	assert.Equal(t, "info", cfg.LogLevel, "empty flag values should not override")

	cfg.ApplyFlags("warn", true, true, 8, 100, "myscripts")
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, 100, cfg.MaxSearchResults)
	assert.Equal(t, "myscripts", cfg.ScriptsDir)
}

func TestApplyFlagsLogJSONRequiresExplicitSet(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.LogJSON = true

	cfg.ApplyFlags("", false, false, 0, 0, "")
	assert.True(t, cfg.LogJSON, "logJSONSet=false must leave LogJSON untouched")
}
