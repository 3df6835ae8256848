package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// API configuration
	API APIConfig `mapstructure:"api" json:"api"`

	// Local persistence
	Storage StorageConfig `mapstructure:"storage" json:"storage"`

	// Sync behavior
	Sync SyncConfig `mapstructure:"sync" json:"sync"`

	// Logging
	Log LogConfig `mapstructure:"log" json:"log"`
}

// APIConfig for ward API communication. The bearer token is supplied by an
// external auth collaborator; this client only carries it.
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url" json:"base_url"`
	Token      string        `mapstructure:"token" json:"token,omitempty"`
	Timeout    time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" json:"max_retries"`
	UserAgent  string        `mapstructure:"user_agent" json:"user_agent"`
}

// StorageConfig for the local cache and outbox.
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir" json:"data_dir"`
	Backend string `mapstructure:"backend" json:"backend"` // sqlite or json
}

// SyncConfig for drain behavior.
type SyncConfig struct {
	DrainOnStart bool `mapstructure:"drain_on_start" json:"drain_on_start"`
	NoticeBuffer int  `mapstructure:"notice_buffer" json:"notice_buffer"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" json:"format"` // text, json
	File   string `mapstructure:"file" json:"file"`     // empty = stdout
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    "https://hospitalzapata.duckdns.org:8081/api",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			UserAgent:  "wardsync/1.0",
		},
		Storage: StorageConfig{
			DataDir: ".wardsync",
			Backend: "sqlite",
		},
		Sync: SyncConfig{
			DrainOnStart: true,
			NoticeBuffer: 100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}

	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}

	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries cannot be negative")
	}

	if c.Storage.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}

	switch c.Storage.Backend {
	case "sqlite", "json":
	default:
		return fmt.Errorf("invalid storage backend: %s", c.Storage.Backend)
	}

	if c.Sync.NoticeBuffer <= 0 {
		return errors.New("sync.notice_buffer must be positive")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Storage.DataDir}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
