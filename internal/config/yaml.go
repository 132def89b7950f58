package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the top-level gatekit configuration file. Every
// value can also be supplied through GATEKIT_* environment variables or
// flags; the file is optional.
type YAMLConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host"`
	Port            int        `yaml:"port"`
	ShutdownTimeout string     `yaml:"shutdown_timeout"`
	AuthRatePerMin  int        `yaml:"auth_rate_per_minute"`
	UI              bool       `yaml:"ui"`
	CORS            CORSConfig `yaml:"cors"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// StoreConfig selects the user store backend.
type StoreConfig struct {
	Driver  string `yaml:"driver"`   // sqlite, postgres, or mysql
	DSN     string `yaml:"dsn"`      // connection string (postgres/mysql)
	DataDir string `yaml:"data_dir"` // sqlite data directory
}

// AuthConfig controls token issuance.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	TokenTTL  string `yaml:"token_ttl"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LoadYAMLConfig reads and parses a YAML configuration file. Environment
// variables referenced as ${VAR_NAME} in the file are expanded before
// parsing, so secrets can stay out of the file itself.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	var cfg YAMLConfig
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with the defaults the
// server would use with no configuration at all.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            4000,
			ShutdownTimeout: "30s",
			AuthRatePerMin:  30,
			UI:              true,
			CORS: CORSConfig{
				Origins: []string{"*"},
			},
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Auth: AuthConfig{
			TokenTTL: "24h",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
