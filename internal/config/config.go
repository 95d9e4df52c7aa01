// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration, loaded from a YAML file with a
// couple of environment overrides for containerized deployments.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the HTTP listener and static asset settings.
type ServerConfig struct {
	// Address is the listen address, e.g. ":8080".
	Address string `yaml:"address"`
	// StaticPath is the directory holding the built client. Empty disables
	// static serving.
	StaticPath string `yaml:"static_path"`
	// Index is the fallback document for client-side routes.
	Index string `yaml:"index"`
	// OriginPatterns whitelists websocket origins. Defaults to same-origin
	// only when empty.
	OriginPatterns []string `yaml:"origin_patterns"`
}

// LoggingConfig selects the log verbosity and output format.
type LoggingConfig struct {
	// Level is a logrus level name: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address: ":8080",
			Index:   "index.html",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. A missing file is not an error; the defaults stand.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to defaults.
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if addr := os.Getenv("ADDR"); addr != "" {
		cfg.Server.Address = addr
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Address = ":" + port
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}
