// Package config loads optional pipeline configuration. The vecadd demo
// itself takes no flags or environment variables; configuration exists for
// library consumers and tests that need a different backend order or log
// verbosity.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Device struct {
		// Backends is the ordered preference list of OCCA device
		// properties JSON strings. Empty means the built-in default order.
		Backends []string `yaml:"backends"`
	} `yaml:"device"`
	Logger struct {
		Verbosity string `yaml:"verbosity"`
	} `yaml:"logger"`
}

// Default returns the configuration the demo runs with
func Default() *Config {
	var cfg Config
	cfg.Logger.Verbosity = "info"
	return &cfg
}

// Load reads and parses a YAML config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
