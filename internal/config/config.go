// Package config resolves the app settings directory and environment
// overrides for external tools.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	envHome     = "SVF_HOME"
	envNgrokBin = "SVF_NGROK_PATH"
	envNgrokAPI = "SVF_NGROK_API"

	defaultNgrokBin = "ngrok"
	defaultNgrokAPI = "http://127.0.0.1:4040"
)

// Config holds resolved paths and tool locations
type Config struct {
	// SettingsDir is where the record store, vault and temp archives live
	SettingsDir string
	NgrokBin    string
	NgrokAPI    string
}

// Load resolves the settings directory (creating it if needed) and applies
// overrides from <settings>/.env and the process environment.
func Load() (*Config, error) {
	dir := os.Getenv(envHome)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".config", "svf")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	// Optional overrides; a missing .env file is fine.
	godotenv.Load(filepath.Join(dir, ".env"))

	cfg := &Config{
		SettingsDir: dir,
		NgrokBin:    defaultNgrokBin,
		NgrokAPI:    defaultNgrokAPI,
	}
	if v := os.Getenv(envNgrokBin); v != "" {
		cfg.NgrokBin = v
	}
	if v := os.Getenv(envNgrokAPI); v != "" {
		cfg.NgrokAPI = v
	}

	return cfg, nil
}

// TempDir returns the scratch directory used for deploy archives, creating
// it if needed.
func (c *Config) TempDir() (string, error) {
	dir := filepath.Join(c.SettingsDir, "temp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// VaultDir returns the directory holding encrypted secrets.
func (c *Config) VaultDir() string {
	return filepath.Join(c.SettingsDir, "vault")
}
