// Package config loads the static deployment configuration. Runtime
// toggles (global switch, limits, retention) live in the database
// parameter table instead, so they can change without a restart.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type ServerConfig struct {
	Host string    `yaml:"host"`
	Port int       `yaml:"port"`
	TLS  TLSConfig `yaml:"tls"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ApplicationConfig struct {
	Version  string `yaml:"version"`
	Language string `yaml:"language"`
	Timezone string `yaml:"timezone"`
}

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Application ApplicationConfig `yaml:"application"`
}

// Default returns a config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "data/gateway.db",
		},
		Application: ApplicationConfig{
			Version:  "1.0.0",
			Language: "en_US",
			Timezone: "UTC",
		},
	}
}

// Load reads configs/app.yaml when present, falling back to defaults,
// then applies environment overrides.
func Load() *Config {
	cfg := Default()

	path := filepath.Join("configs", "app.yaml")
	if b, err := os.ReadFile(path); err == nil {
		_ = yaml.Unmarshal(b, cfg)
	}

	if host := os.Getenv("GATEWAY_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("GATEWAY_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = n
		}
	}
	if dbPath := os.Getenv("GATEWAY_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	return cfg
}
