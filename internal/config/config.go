package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config defines process configuration: where the database lives and
// how the process behaves. User-facing settings (credential, filters,
// poll interval) live in the store, not here.
type Config struct {
	DB  DBConfig  `yaml:"db"`
	API APIConfig `yaml:"api"`
	Log LogConfig `yaml:"log"`
	MCP MCPConfig `yaml:"mcp"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from an optional YAML file and environment
// variables. An explicit path wins over ASANA_LIST_CONFIG_PATH; env
// overrides apply on top of the file either way. An empty DB path means
// "use the per-user default".
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level: "info",
		},
	}

	if path == "" {
		path = os.Getenv("ASANA_LIST_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if dbPath := os.Getenv("ASANA_LIST_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if baseURL := os.Getenv("ASANA_LIST_BASE_URL"); baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if level := os.Getenv("ASANA_LIST_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if mcp := os.Getenv("ASANA_LIST_MCP"); mcp != "" {
		cfg.MCP.Enabled = mcp == "1" || mcp == "true"
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
