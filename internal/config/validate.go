package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSyncthing(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSyncthing() error {
	if strings.TrimSpace(c.Syncthing.ExecutablePath) == "" {
		return fmt.Errorf("syncthing.executable_path is required")
	}
	if c.Syncthing.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/seam/config.toml"
		}
		return fmt.Errorf("syncthing.api_key is required. Edit %s (create with 'seam config init')", defaultPath)
	}
	if _, _, err := net.SplitHostPort(c.Syncthing.Address); err != nil {
		return fmt.Errorf("syncthing.address %q must be host:port: %w", c.Syncthing.Address, err)
	}
	for key := range c.Syncthing.Environment {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("syncthing.environment contains an empty variable name")
		}
		if strings.Contains(key, "=") {
			return fmt.Errorf("syncthing.environment variable name %q must not contain '='", key)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
