// Package config implements ferro's layered configuration: built-in
// defaults, overridden by a .env file (github.com/joho/godotenv), overridden
// by CLI flags. Grounded on termfx-morfx's internal/config (the only pack
// repo with a dedicated config layer: env vars with defaults, parsed with
// strconv and a fallback), generalized from pure os.Getenv to godotenv so a
// project can pin its own defaults in a checked-in .env without exporting
// shell variables.
package config

import (
	"os"
	"strconv"
)

// Config holds ferro's runtime configuration.
type Config struct {
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string
	// LogJSON forces JSON log output even on a TTY.
	LogJSON bool
	// WorkerCount is a worker-pool size, 0 meaning runtime.NumCPU().
	// internal/index.ComputeAllParallel takes no worker count and always
	// sizes its pool from runtime.NumCPU().
	WorkerCount int
	// MaxSearchResults is a default result limit for world_symbols
	// searches. index.Query does not consult it: a Query.Limit of 0 means
	// no limit.
	MaxSearchResults int
	// ScriptsDir is the base directory internal/macro and internal/assist
	// load *.risor scripts from.
	ScriptsDir string
}

// Load builds a Config from built-in defaults, then a .env file at
// envPath (if it exists — a missing file is skipped rather than reported,
// which godotenv.Load alone would do), then
// process environment variables, which always win over .env.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := loadDotenv(envPath); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		LogLevel:         "info",
		LogJSON:          false,
		WorkerCount:      0,
		MaxSearchResults: 50,
		ScriptsDir:       "scripts",
	}

	if v := os.Getenv("FERRO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FERRO_LOG_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogJSON = b
		}
	}
	if v := os.Getenv("FERRO_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.WorkerCount = n
		}
	}
	if v := os.Getenv("FERRO_MAX_SEARCH_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSearchResults = n
		}
	}
	if v := os.Getenv("FERRO_SCRIPTS_DIR"); v != "" {
		cfg.ScriptsDir = v
	}

	return cfg, nil
}

// ApplyFlags overrides cfg's fields with any explicitly-set CLI flag
// value; zero values mean "flag not set, keep the env/default value" for
// every field except LogJSON, which callers pass as set=false + value=false
// when the flag truly wasn't provided (cobra/pflag's Changed() check).
func (c *Config) ApplyFlags(logLevel string, logJSONSet, logJSON bool, workerCount, maxSearchResults int, scriptsDir string) {
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if logJSONSet {
		c.LogJSON = logJSON
	}
	if workerCount > 0 {
		c.WorkerCount = workerCount
	}
	if maxSearchResults > 0 {
		c.MaxSearchResults = maxSearchResults
	}
	if scriptsDir != "" {
		c.ScriptsDir = scriptsDir
	}
}
