package diagnostics

import (
	"fmt"
)

const (
	BackendNone  = "none"
	BackendDir   = "dir"
	BackendJSONL = "jsonl"
)

// Config selects and tunes the diagnostics backend.
type Config struct {
	Backend    string `json:"backend"`
	Dir        string `json:"dir"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendNone
	}
	if c.Dir == "" {
		c.Dir = "out/__input__"
	}
	if c.Path == "" {
		c.Path = "out/diagnostics/inputs.jsonl"
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 50
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 5
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 30
	}
}

// Validate rejects unknown backends.
func (c Config) Validate() error {
	switch c.Backend {
	case "", BackendNone, BackendDir, BackendJSONL:
		return nil
	default:
		return fmt.Errorf("diagnostics: unknown backend %q", c.Backend)
	}
}
