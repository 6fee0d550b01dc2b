// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the conds CLI configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"code.hybscloud.com/conds"
	"code.hybscloud.com/conds/internal/logging"
)

// Config is the content of a conds configuration file.
type Config struct {
	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
	// Warn is the warning disposition: ignore, deferred, immediate or error.
	Warn string `yaml:"warn"`
	// Metrics enables counter totals after each run.
	Metrics bool `yaml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{LogLevel: "info", Warn: "immediate"}
}

// Load reads the file at path. A missing file yields the defaults; unknown
// keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the level names.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := conds.ParseWarnLevel(c.Warn); err != nil {
		return err
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() slog.Level {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// Options converts the configuration into task options.
func (c Config) Options(logger *slog.Logger) ([]conds.Option, error) {
	warn, err := conds.ParseWarnLevel(c.Warn)
	if err != nil {
		return nil, err
	}
	return []conds.Option{conds.WithLogger(logger), conds.WithWarnLevel(warn)}, nil
}
