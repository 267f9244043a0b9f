// Package config holds benchmark configuration: compiled-in defaults,
// an optional YAML file, and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default configuration values. The port matches the makocon server's
// default listen address rather than stock Redis.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 16380
	DefaultKey  = "bench_counter"
	DefaultOps  = 10000
)

// Config describes one benchmark run.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Key  string `yaml:"key"`
	Ops  int    `yaml:"ops"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Host: DefaultHost,
		Port: DefaultPort,
		Key:  DefaultKey,
		Ops:  DefaultOps,
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// FromEnv applies MAKOBENCH_* environment overrides to c.
func (c *Config) FromEnv() error {
	if host := os.Getenv("MAKOBENCH_HOST"); host != "" {
		c.Host = host
	}

	if port := os.Getenv("MAKOBENCH_PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("parse MAKOBENCH_PORT: %w", err)
		}
		c.Port = n
	}

	if key := os.Getenv("MAKOBENCH_KEY"); key != "" {
		c.Key = key
	}

	if ops := os.Getenv("MAKOBENCH_OPS"); ops != "" {
		n, err := strconv.Atoi(ops)
		if err != nil {
			return fmt.Errorf("parse MAKOBENCH_OPS: %w", err)
		}
		c.Ops = n
	}

	return nil
}

// Verify checks that the configuration describes a runnable benchmark.
func (c Config) Verify() error {
	if c.Host == "" {
		return fmt.Errorf("host must not be empty")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}

	if c.Key == "" {
		return fmt.Errorf("key must not be empty")
	}

	if c.Ops <= 0 {
		return fmt.Errorf("ops must be positive, got %d", c.Ops)
	}

	return nil
}
