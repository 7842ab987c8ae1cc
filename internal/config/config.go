// Package config loads the engine configuration for the CLI harness:
// built-in defaults overlaid with an optional YAML file. Library users
// construct manip.Config directly instead.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oraclewatch/oraclewatch/internal/manip"
)

// File is the on-disk configuration shape.
type File struct {
	Engine manip.Config `yaml:"engine"`
	Log    LogConfig    `yaml:"log"`
}

// LogConfig controls CLI logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *File {
	return &File{
		Engine: *manip.DefaultConfig(),
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path returns defaults
// unchanged; a missing or malformed file is a deployment mistake and fails
// immediately.
func Load(path string) (*File, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
