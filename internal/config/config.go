// Package config loads the minimact.json project file used by the
// CLI. All fields are optional; flags override file values.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/minimact-dev/minimact/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "minimact.json"

	// DefaultServerURL is the default WebSocket endpoint.
	DefaultServerURL = "ws://localhost:3000/minimact/ws"

	// DefaultListen is the default diagnostics listen address.
	DefaultListen = "localhost:9470"
)

// Config represents the minimact.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// ServerURL is the WebSocket endpoint of the minimact server.
	ServerURL string `json:"serverUrl,omitempty"`

	// Page is the path of the server-rendered HTML page to hydrate.
	Page string `json:"page,omitempty"`

	// Listen is the diagnostics server address (metrics, health).
	Listen string `json:"listen,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		ServerURL: DefaultServerURL,
		Listen:    DefaultListen,
	}
}

// Load reads minimact.json from dir, returning defaults when the file
// does not exist.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.ErrConfigInvalid(path, err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.ErrConfigInvalid(path, err)
	}
	if config.ServerURL == "" {
		config.ServerURL = DefaultServerURL
	}
	if config.Listen == "" {
		config.Listen = DefaultListen
	}
	return config, nil
}

// Save writes the configuration to dir.
func (c *Config) Save(dir string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ConfigFileName), append(data, '\n'), 0o644)
}
