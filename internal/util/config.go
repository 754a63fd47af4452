// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DataDirEnv overrides the default data directory.
const DataDirEnv = "APLEDGER_HOME"

// Config holds apledger configuration settings
type Config struct {
	Prompt                string `yaml:"prompt" description:"Prompt prefix shown by the shell" default:"apledger"`
	HistoryLimit          int    `yaml:"history_limit" description:"Number of history lines kept on disk" default:"100"`
	ProtocolVersion       int    `yaml:"protocol_version" description:"Pool protocol version used by 'pool connect' (1 or 2)" default:"2"`
	PromptDeferred        bool   `yaml:"prompt_deferred" description:"Prompt for secret parameters named without a value" default:"true"`
	LogLevel              string `yaml:"log_level" description:"Log level (debug, info, warn, error)" default:"info"`
	NetworkTimeoutSeconds int    `yaml:"network_timeout_seconds" description:"Timeout for pool requests in seconds" default:"20"`
}

// DefaultConfig returns the default configuration for runtime use.
func DefaultConfig() Config {
	return Config{
		Prompt:                "apledger",
		HistoryLimit:          100,
		ProtocolVersion:       2,
		PromptDeferred:        true,
		LogLevel:              "info",
		NetworkTimeoutSeconds: 20,
	}
}

// NetworkTimeout returns the configured pool timeout.
func (c Config) NetworkTimeout() time.Duration {
	return time.Duration(c.NetworkTimeoutSeconds) * time.Second
}

// Validate checks the values a config file may have set.
func (c Config) Validate() error {
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative, got %d", c.HistoryLimit)
	}
	if c.ProtocolVersion != 1 && c.ProtocolVersion != 2 {
		return fmt.Errorf("protocol_version must be 1 or 2, got %d", c.ProtocolVersion)
	}
	if c.NetworkTimeoutSeconds <= 0 {
		return fmt.Errorf("network_timeout_seconds must be positive, got %d", c.NetworkTimeoutSeconds)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// GetDataDir returns the data directory.
// Resolution order: -d flag > APLEDGER_HOME env var > ~/.apledger
func GetDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envDir := os.Getenv(DataDirEnv); envDir != "" {
		return envDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "" // Can't determine default
	}
	return filepath.Join(home, ".apledger")
}

// GetConfigPath returns the path to the config file in the data directory.
// Returns empty string if dataDir is empty.
func GetConfigPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "config.yaml")
}

// WalletsDir holds wallet records and the default wallet storage.
func WalletsDir(dataDir string) string { return filepath.Join(dataDir, "wallets") }

// PoolsDir holds pool records.
func PoolsDir(dataDir string) string { return filepath.Join(dataDir, "pools") }

// HistoryPath is the shell history file.
func HistoryPath(dataDir string) string { return filepath.Join(dataDir, "history") }

// LoadConfig loads configuration from config.yaml in the data directory.
// If the file doesn't exist, returns default config.
func LoadConfig(dataDir string) (Config, error) {
	return LoadConfigFromPath(GetConfigPath(dataDir))
}

// LoadConfigFromPath loads configuration from the specified path.
// If path is empty or the file doesn't exist, returns default config.
func LoadConfigFromPath(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return DefaultConfig(), fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay config file values
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Prompt == "" {
		config.Prompt = DefaultConfig().Prompt
	}
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// DisplayConfig prints the effective configuration
func DisplayConfig(w io.Writer, dataDir string, config Config) {
	_, _ = fmt.Fprintf(w, "Data dir:         %s\n", dataDir)
	_, _ = fmt.Fprintf(w, "Config file:      %s\n", GetConfigPath(dataDir))
	_, _ = fmt.Fprintf(w, "Prompt:           %s\n", config.Prompt)
	_, _ = fmt.Fprintf(w, "History limit:    %d\n", config.HistoryLimit)
	_, _ = fmt.Fprintf(w, "Protocol version: %d\n", config.ProtocolVersion)
	_, _ = fmt.Fprintf(w, "Prompt deferred:  %t\n", config.PromptDeferred)
	_, _ = fmt.Fprintf(w, "Log level:        %s\n", config.LogLevel)
	_, _ = fmt.Fprintf(w, "Pool timeout:     %s\n", config.NetworkTimeout())
}
