package configuration

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/utils"
)

const (
	ConfigVersion  = "1.0"
	ConfigFileName = "config.json"

	DefaultPreviewAddr  = "127.0.0.1:54330"
	DefaultMaxRevisions = 50
)

// Config is the engine's persisted configuration.
type Config struct {
	Version string `json:"version"`

	// PagesDB is the sqlite file of the page store.
	PagesDB string `json:"pages_db"`

	// PreviewAddr is where `preview` serves the live fragment.
	PreviewAddr string `json:"preview_addr"`

	// ColorDiff colors diff output, on a terminal only.
	ColorDiff bool `json:"color_diff"`

	JSONLogs bool `json:"json_logs,omitempty"`

	// MaxRevisions bounds the history kept per page.
	MaxRevisions int `json:"max_revisions"`
}

// NewConfig creates a new configuration with sensible defaults
func NewConfig() *Config {
	return &Config{
		Version:      ConfigVersion,
		PagesDB:      filepath.Join(utils.HomeDir(), "pages.db"),
		PreviewAddr:  DefaultPreviewAddr,
		ColorDiff:    true,
		MaxRevisions: DefaultMaxRevisions,
	}
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() string {
	return filepath.Join(utils.HomeDir(), ConfigFileName)
}

// Load reads the config file. A missing file yields the defaults.
func Load() (*Config, error) {
	configPath := GetConfigPath()

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return NewConfig(), nil
	}
	if err != nil {
		return nil, utils.NewFileSystemError("read config", configPath, err)
	}

	config := NewConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, utils.NewConfigurationError(configPath, fmt.Errorf("failed to parse config file: %w", err))
	}

	// Set version if not present
	if config.Version == "" {
		config.Version = ConfigVersion
	}
	if config.MaxRevisions == 0 {
		config.MaxRevisions = DefaultMaxRevisions
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to file
func (c *Config) Save() error {
	configPath := GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return utils.NewFileSystemError("create config directory", filepath.Dir(configPath), err)
	}

	c.Version = ConfigVersion

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return utils.NewFileSystemError("write config", configPath, err)
	}
	return nil
}

// Validate checks the values a command would trip over later.
func (c *Config) Validate() error {
	if c.PagesDB == "" {
		return utils.NewValidationError("pages_db", "pages database path cannot be empty")
	}
	if c.MaxRevisions < 0 {
		return utils.NewValidationError("max_revisions", "max revisions cannot be negative")
	}
	if _, _, err := net.SplitHostPort(c.PreviewAddr); err != nil {
		return utils.NewValidationError("preview_addr", fmt.Sprintf("preview address must be host:port: %v", err))
	}
	return nil
}
