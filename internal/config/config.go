// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

// Package config loads the sync service configuration via Koanf v2 with
// layered sources (highest priority wins):
//
//   - Environment variables (CRYPTOCLASH_* and a few shorthand names)
//   - Config file (config.yaml)
//   - Built-in defaults
package config

import (
	"fmt"
	"time"
)

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Log     LogConfig     `koanf:"log"`
	Sync    SyncConfig    `koanf:"sync"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// ServerConfig configures the HTTP/WebSocket gateway.
type ServerConfig struct {
	// Addr is the listen address, host optional.
	Addr string `koanf:"addr"`

	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed origins for browser clients.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimit caps requests per client IP per RateLimitWindow.
	// Zero disables rate limiting.
	RateLimit       int           `koanf:"rate_limit"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// SyncConfig configures the sync engine's bookkeeping bounds.
type SyncConfig struct {
	// DeviceCapacity bounds the reconciler's snapshot map. Zero applies
	// the built-in default.
	DeviceCapacity int `koanf:"device_capacity"`

	// EventMaxAge is the retention applied by the periodic event purge.
	EventMaxAge time.Duration `koanf:"event_max_age"`

	// EventPurgeInterval is how often old sync events are purged.
	// Zero disables the periodic purge.
	EventPurgeInterval time.Duration `koanf:"event_purge_interval"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8808",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       100,
			RateLimitWindow: time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Sync: SyncConfig{
			DeviceCapacity:     0, // reconciler default
			EventMaxAge:        5 * time.Minute,
			EventPurgeInterval: time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %v", c.Server.ShutdownTimeout)
	}
	if c.Sync.DeviceCapacity < 0 {
		return fmt.Errorf("sync.device_capacity must not be negative, got %d", c.Sync.DeviceCapacity)
	}
	if c.Sync.EventMaxAge < 0 {
		return fmt.Errorf("sync.event_max_age must not be negative, got %v", c.Sync.EventMaxAge)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %d", c.Server.RateLimit)
	}
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics.path must not be empty when metrics are enabled")
	}
	return nil
}
