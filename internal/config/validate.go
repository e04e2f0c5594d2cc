package config

import (
	"fmt"
	"path"
	"slices"
)

var (
	validModes      = []string{"full", "shape"}
	validFormats    = []string{"json", "yaml", "cbor"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Validate checks option values after flags have been applied
func (c *Config) Validate() error {
	if err := oneOf("mode", c.Mode, validModes); err != nil {
		return err
	}
	if err := oneOf("format", c.Format, validFormats); err != nil {
		return err
	}
	if err := oneOf("log_level", c.LogLevel, validLogLevels); err != nil {
		return err
	}
	if err := oneOf("log_format", c.LogFormat, validLogFormats); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got %d", c.MaxDepth)
	}
	return validatePatterns(c.Files)
}

// Matches reports whether an entry name passes the files filter. An empty
// filter matches everything.
func (c *Config) Matches(name string) bool {
	if len(c.Files) == 0 {
		return true
	}
	for _, pattern := range c.Files {
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func oneOf(key, value string, allowed []string) error {
	if !slices.Contains(allowed, value) {
		return fmt.Errorf("unsupported %s '%s': expected one of %v", key, value, allowed)
	}
	return nil
}

// validatePatterns ensures every files filter is a well-formed glob
func validatePatterns(patterns []string) error {
	for _, pattern := range patterns {
		if pattern == "" {
			return fmt.Errorf("file pattern cannot be empty")
		}
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid file pattern '%s': %w", pattern, err)
		}
	}
	return nil
}
