// Package config loads the flow server configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/meikuraledutech/flow/history"
)

// Config is the server configuration read from flow.yaml.
type Config struct {
	Version int `yaml:"version"`
	Server  struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Editor struct {
		HistorySize int `yaml:"history_size"`
	} `yaml:"editor"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{Version: 1}
	cfg.Server.Addr = ":3000"
	cfg.Editor.HistorySize = history.DefaultCapacity
	return cfg
}

// Load reads the YAML file at path, if any, then applies environment
// overrides. A .env file in the working directory is loaded first; a
// missing .env or config file is not an error.
//
// Environment: DATABASE_URL, FLOW_ADDR, FLOW_HISTORY_SIZE.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("config: unsupported version: %d", cfg.Version)
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("FLOW_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("FLOW_HISTORY_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: FLOW_HISTORY_SIZE: %w", err)
		}
		cfg.Editor.HistorySize = n
	}

	if cfg.Editor.HistorySize <= 0 {
		cfg.Editor.HistorySize = history.DefaultCapacity
	}
	return cfg, nil
}
