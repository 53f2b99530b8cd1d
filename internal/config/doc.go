// Package config loads, validates, and normalizes seam's TOML configuration.
package config
