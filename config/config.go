// Package config loads and saves the persistent application settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// appDir is the directory name under the user configuration directory.
const appDir = "pdfcombiner"

// Config holds the settings kept between runs.
type Config struct {
	// LastDirectory is the directory the previous output was written to.
	LastDirectory string `json:"last_directory"`
	// HistoryFile is the path of the combine history. Empty selects
	// DefaultHistoryPath.
	HistoryFile string `json:"history_file,omitempty"`
	// AutoOpen opens the output in the system viewer after a combine.
	AutoOpen bool `json:"auto_open"`
	// StrictVerify validates every output with pdfcpu before committing.
	StrictVerify bool `json:"strict_verify"`
}

// Default returns the settings used when no configuration file exists.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{LastDirectory: home, AutoOpen: true}
}

// Dir returns the configuration directory, honouring XDG_CONFIG_HOME.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

// DefaultPath returns the default configuration file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DefaultHistoryPath returns the default history file path.
func DefaultHistoryPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.json"), nil
}

// Load reads the configuration at path. A missing or unreadable file yields
// Default along with the error that caused it, so callers may warn and go
// on.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// RememberDirectory records the directory containing file as
// LastDirectory.
func (c *Config) RememberDirectory(file string) {
	if file == "" {
		return
	}
	dir := filepath.Dir(file)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	c.LastDirectory = dir
}

// HistoryPath returns HistoryFile, or the default history path when it is
// empty.
func (c Config) HistoryPath() (string, error) {
	if c.HistoryFile != "" {
		return c.HistoryFile, nil
	}
	return DefaultHistoryPath()
}
