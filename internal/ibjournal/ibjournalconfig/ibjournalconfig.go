// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibjournalconfig provides configuration parsing and validation for ibjournal.
//
// Configuration is stored at <dir>/ibjournal.yaml, where <dir> is the base
// directory given by the --dir flag.
package ibjournalconfig

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournalpath"
	"github.com/bufdev/ibjournal/internal/ibjournal/ibjournaltrade"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultReconcileTolerance is the reconcile tolerance used when the config does not set one.
	DefaultReconcileTolerance = 0.01
	// DefaultServerAddress is the serve address used when the config does not set one.
	DefaultServerAddress = "127.0.0.1:8080"
	// DefaultServerImportsPerMinute is the import rate limit used when the config does not set one.
	DefaultServerImportsPerMinute = 30
)

// configTemplate is the default configuration file template with comments.
// yaml.v3 does not preserve comments, so we hardcode the template string.
const configTemplate = `# The configuration file version.
#
# Required. The only current valid version is v1.
version: v1
# The broker that produced the imported statements.
#
# Optional. One of IBKR, SCHWAB, MANUAL. Defaults to IBKR.
broker: IBKR
# The trade store file name.
#
# Optional. Relative names are resolved against this directory.
# Defaults to ibjournal.db.
database: ibjournal.db
# Reconciliation configuration.
reconcile:
  # The largest absolute P&L difference that still counts as a match.
  #
  # Optional. Defaults to 0.01.
  tolerance: 0.01
# HTTP API configuration for "ibjournal serve".
server:
  # The listen address.
  #
  # Optional. Defaults to 127.0.0.1:8080.
  address: 127.0.0.1:8080
  # The maximum number of statement imports accepted per minute.
  #
  # Optional. Defaults to 30.
  imports_per_minute: 30
`

// ExternalConfig is the YAML-serializable configuration file structure.
type ExternalConfig struct {
	// Version is the configuration file version (must be "v1").
	Version string `yaml:"version"`
	// Broker is the broker of imported statements.
	Broker string `yaml:"broker"`
	// Database is the trade store file name.
	Database string `yaml:"database"`
	// Reconcile holds reconciliation configuration.
	Reconcile ExternalReconcileConfig `yaml:"reconcile"`
	// Server holds HTTP API configuration.
	Server ExternalServerConfig `yaml:"server"`
}

// ExternalReconcileConfig holds reconciliation configuration.
type ExternalReconcileConfig struct {
	// Tolerance is the match tolerance. Nil means the default.
	Tolerance *float64 `yaml:"tolerance"`
}

// ExternalServerConfig holds HTTP API configuration.
type ExternalServerConfig struct {
	// Address is the listen address.
	Address string `yaml:"address"`
	// ImportsPerMinute is the import rate limit. Zero means the default.
	ImportsPerMinute int `yaml:"imports_per_minute"`
}

// Config is the validated runtime configuration derived from the config file.
type Config struct {
	// Broker is the broker recorded on every normalized trade.
	Broker ibjournaltrade.Broker
	// DatabaseFileName is the trade store file name.
	DatabaseFileName string
	// ReconcileTolerance is the largest absolute P&L difference that is a match.
	ReconcileTolerance float64
	// ServerAddress is the HTTP listen address.
	ServerAddress string
	// ServerImportsPerMinute is the HTTP import rate limit.
	ServerImportsPerMinute int
}

// NewConfig validates an ExternalConfig and returns a runtime Config.
//
// Unset optional fields take their defaults.
func NewConfig(externalConfig ExternalConfig) (*Config, error) {
	if externalConfig.Version != "v1" {
		return nil, fmt.Errorf("unsupported config version %q, must be v1", externalConfig.Version)
	}
	config := &Config{
		Broker:                 ibjournaltrade.BrokerIBKR,
		DatabaseFileName:       ibjournalpath.DefaultDatabaseFileName,
		ReconcileTolerance:     DefaultReconcileTolerance,
		ServerAddress:          DefaultServerAddress,
		ServerImportsPerMinute: DefaultServerImportsPerMinute,
	}
	if externalConfig.Broker != "" {
		broker, err := ibjournaltrade.ParseBroker(externalConfig.Broker)
		if err != nil {
			return nil, fmt.Errorf("broker: %w", err)
		}
		config.Broker = broker
	}
	if externalConfig.Database != "" {
		config.DatabaseFileName = externalConfig.Database
	}
	if tolerance := externalConfig.Reconcile.Tolerance; tolerance != nil {
		if *tolerance < 0 || math.IsNaN(*tolerance) || math.IsInf(*tolerance, 0) {
			return nil, fmt.Errorf("reconcile.tolerance must be a non-negative number, got %v", *tolerance)
		}
		config.ReconcileTolerance = *tolerance
	}
	if externalConfig.Server.Address != "" {
		config.ServerAddress = externalConfig.Server.Address
	}
	switch importsPerMinute := externalConfig.Server.ImportsPerMinute; {
	case importsPerMinute < 0:
		return nil, errors.New("server.imports_per_minute must not be negative")
	case importsPerMinute > 0:
		config.ServerImportsPerMinute = importsPerMinute
	}
	return config, nil
}

// ReadConfig reads and validates the configuration file from the given base directory.
// Returns a clear error message directing users to run "ibjournal config init" if the file is missing.
func ReadConfig(dirPath string) (*Config, error) {
	filePath := ibjournalpath.ConfigFilePath(dirPath)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found at %s, run \"ibjournal config init\" to create one", filePath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	config, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", filePath, err)
	}
	return config, nil
}

// ParseConfig parses and validates configuration file contents.
func ParseConfig(data []byte) (*Config, error) {
	var externalConfig ExternalConfig
	if err := unmarshalYAMLStrict(data, &externalConfig); err != nil {
		return nil, err
	}
	return NewConfig(externalConfig)
}

// InitConfig creates a new configuration file with a documented template.
// Creates the base directory if it does not exist.
// Returns the path to the created file, or an error if the file already exists.
func InitConfig(dirPath string) (string, error) {
	filePath := ibjournalpath.ConfigFilePath(dirPath)
	if _, err := os.Stat(filePath); err == nil {
		return "", fmt.Errorf("configuration file already exists: %s", filePath)
	}
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(configTemplate), 0o644); err != nil {
		return "", err
	}
	return filePath, nil
}

// ValidateConfig reads and validates the configuration file from the given base directory.
func ValidateConfig(dirPath string) error {
	_, err := ReadConfig(dirPath)
	return err
}

// *** PRIVATE ***

// unmarshalYAMLStrict unmarshals the data as YAML with strict field checking.
// If the data length is 0, this is a no-op.
func unmarshalYAMLStrict(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	yamlDecoder := yaml.NewDecoder(bytes.NewReader(data))
	// Reject unknown fields.
	yamlDecoder.KnownFields(true)
	if err := yamlDecoder.Decode(v); err != nil {
		return fmt.Errorf("could not unmarshal as YAML: %w", err)
	}
	return nil
}
