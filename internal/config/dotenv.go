package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// loadDotenv loads envPath into the process environment via godotenv,
// treating a missing file as a no-op: a .env is an optional convenience,
// not a required input.
func loadDotenv(envPath string) error {
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("config: loading %s: %w", envPath, err)
	}
	return nil
}
