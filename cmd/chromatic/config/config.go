// Package config holds user and deployment preferences for chromatic.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds user preferences and deployment wiring.
type Config struct {
	GeminiAPIKey string `json:"gemini_api_key"` // Insight generation; empty disables the call
	SheetURL     string `json:"sheet_url"`      // Remote trial store endpoint; empty means local-only
	AdminPIN     string `json:"admin_pin"`      // Vault unlock PIN (cosmetic gate, not access control)
	Theme        string `json:"theme"`          // "light" or "dark"
	DataDir      string `json:"data_dir"`       // Overrides the default data directory
}

// DefaultConfig returns the default configuration. The PIN default matches
// the deployed exhibit; it gates an easter egg, nothing more.
func DefaultConfig() Config {
	return Config{
		AdminPIN: "chroma2024",
		Theme:    "dark",
	}
}

// ConfigDir returns the directory where config and data live. A
// project-local .chromatic directory wins over the home-level one.
func ConfigDir() (string, error) {
	if cwd, err := os.Getwd(); err == nil {
		localDir := filepath.Join(cwd, ".chromatic")
		if stat, err := os.Stat(localDir); err == nil && stat.IsDir() {
			return localDir, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".chromatic"), nil
}

// ConfigFile returns the full path to the config file.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from disk, applying defaults for a missing
// file and env overrides on top (GEMINI_API_KEY, CHROMATIC_SHEET_URL).
func Load() (Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigFile()
	if err != nil {
		return applyEnv(cfg), err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return applyEnv(cfg), nil
	}
	if err != nil {
		return applyEnv(cfg), err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return applyEnv(DefaultConfig()), err
	}
	if cfg.AdminPIN == "" {
		cfg.AdminPIN = DefaultConfig().AdminPIN
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("CHROMATIC_SHEET_URL"); v != "" {
		cfg.SheetURL = v
	}
	return cfg
}

// Save writes the configuration to disk.
func Save(cfg Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	path, err := ConfigFile()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DataDir resolves where the local database and logs live.
func DataDir(cfg Config) (string, error) {
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	return ConfigDir()
}
