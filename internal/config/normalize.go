package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSyncthing(); err != nil {
		return err
	}
	c.normalizeSupervisor()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSyncthing() error {
	c.Syncthing.Address = strings.TrimSpace(c.Syncthing.Address)
	if c.Syncthing.Address == "" {
		c.Syncthing.Address = defaultAddress
	}
	c.Syncthing.APIKey = strings.TrimSpace(c.Syncthing.APIKey)

	exe := strings.TrimSpace(c.Syncthing.ExecutablePath)
	if exe == "" {
		exe = defaultExecutablePath
	}
	// Bare binary names stay bare so PATH lookup applies; anything with a
	// separator or tilde is expanded to an absolute path.
	if strings.ContainsAny(exe, "/\\") || strings.HasPrefix(exe, "~") {
		expanded, err := expandPath(exe)
		if err != nil {
			return fmt.Errorf("syncthing.executable_path: %w", err)
		}
		exe = expanded
	}
	c.Syncthing.ExecutablePath = exe

	if home := strings.TrimSpace(c.Syncthing.HomeDir); home != "" {
		expanded, err := expandPath(home)
		if err != nil {
			return fmt.Errorf("syncthing.home_dir: %w", err)
		}
		c.Syncthing.HomeDir = filepath.Clean(expanded)
	} else {
		c.Syncthing.HomeDir = ""
	}

	if c.Syncthing.ConnectTimeout <= 0 {
		c.Syncthing.ConnectTimeout = defaultConnectTimeout
	}
	return nil
}

func (c *Config) normalizeSupervisor() {
	if c.Supervisor.EventPollTimeout <= 0 {
		c.Supervisor.EventPollTimeout = defaultEventPollTimeout
	}
	if c.Supervisor.ConnectionsPollInterval <= 0 {
		c.Supervisor.ConnectionsPollInterval = defaultConnectionsPollInterval
	}
	if c.Supervisor.JournalRetentionDays <= 0 {
		c.Supervisor.JournalRetentionDays = defaultJournalRetentionDays
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}
