// CryptoClash - Multiplayer Crypto Trading Party Game
// Copyright 2026 boldnotbasic
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/boldnotbasic/cryptoclash-app-sub001

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is stripped from environment variable names before mapping.
	EnvPrefix = "CRYPTOCLASH_"

	// ConfigPathEnvVar points at an explicit config file location.
	ConfigPathEnvVar = "CRYPTOCLASH_CONFIG"
)

// DefaultConfigPaths are searched in order when ConfigPathEnvVar is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cryptoclash/config.yaml",
}

// envMappings maps env var names (prefix stripped, lowercased) to koanf
// paths. Explicit mapping avoids ambiguity between underscores inside a
// key name and nesting separators.
var envMappings = map[string]string{
	"server_addr":              "server.addr",
	"server_read_timeout":      "server.read_timeout",
	"server_write_timeout":     "server.write_timeout",
	"server_shutdown_timeout":  "server.shutdown_timeout",
	"server_cors_origins":      "server.cors_origins",
	"server_rate_limit":        "server.rate_limit",
	"server_rate_limit_window": "server.rate_limit_window",

	"log_level":  "log.level",
	"log_format": "log.format",

	"sync_device_capacity":      "sync.device_capacity",
	"sync_event_max_age":        "sync.event_max_age",
	"sync_event_purge_interval": "sync.event_purge_interval",

	"metrics_enabled": "metrics.enabled",
	"metrics_path":    "metrics.path",
}

// sliceFields are koanf paths holding comma-separated lists when set
// via env vars.
var sliceFields = map[string]bool{
	"server.cors_origins": true,
}

// Load builds the configuration from defaults, an optional YAML file,
// and environment variables. An empty path triggers the default file
// search; a missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	processSliceFields(k)

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envTransform maps CRYPTOCLASH_SERVER_ADDR style names onto nested
// koanf paths. Unknown names are dropped rather than guessed at.
func envTransform(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if path, ok := envMappings[key]; ok {
		return path
	}
	return ""
}

// processSliceFields splits comma-separated env values into slices for
// fields declared as []string.
func processSliceFields(k *koanf.Koanf) {
	for path := range sliceFields {
		raw := k.Get(path)
		s, ok := raw.(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		_ = k.Set(path, out)
	}
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
