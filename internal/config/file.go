package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML overlay. Secrets are intentionally absent:
// they only come from the environment.
type fileConfig struct {
	AppName  string  `yaml:"app_name"`
	LogLevel string  `yaml:"log_level"`
	Gateway  Gateway `yaml:"gateway"`
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	fc := fileConfig{Gateway: cfg.Gateway}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if fc.AppName != "" {
		cfg.AppName = fc.AppName
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.Gateway.Timeout <= 0 {
		fc.Gateway.Timeout = cfg.Gateway.Timeout
	}
	fc.Gateway.SecretKey = cfg.Gateway.SecretKey
	cfg.Gateway = fc.Gateway
	return nil
}
