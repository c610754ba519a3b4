package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"

	"github.com/mcncl/gotoon/internal/models"
)

// Config represents the complete configuration for gotoon
type Config struct {
	MaxDepth  int          `yaml:"max_depth"`
	Validate  bool         `yaml:"validate"`
	KeyCasing string       `yaml:"key_casing"`
	Output    OutputConfig `yaml:"output"`
	Server    ServerConfig `yaml:"server"`
	Dev       DevConfig    `yaml:"dev"`
}

// OutputConfig controls converted-file output
type OutputConfig struct {
	Extension string `yaml:"extension"`
}

// ServerConfig controls the HTTP conversion service
type ServerConfig struct {
	Addr              string   `yaml:"addr"`
	MaxUploadMB       int      `yaml:"max_upload_mb"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// DevConfig contains development/debug options
type DevConfig struct {
	Debug bool `yaml:"debug"`
}

// Key casing modes accepted by key_casing. Renaming that collapses two keys
// into one fails the encoder's self-validation, by design of KeyUniqueness.
const (
	CasingOriginal = "original"
	CasingSnake    = "snake"
	CasingCamel    = "camel"
	CasingPascal   = "pascal"
)

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		MaxDepth:  models.DefaultMaxDepth,
		Validate:  true,
		KeyCasing: CasingOriginal,
		Output: OutputConfig{
			Extension: ".toon",
		},
		Server: ServerConfig{
			Addr:              ":8080",
			MaxUploadMB:       16,
			AllowedExtensions: []string{".json"},
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if _, err := cfg.KeyRenamer(); err != nil {
		return nil, err
	}
	if cfg.MaxDepth <= 0 {
		return nil, fmt.Errorf("max_depth must be positive, got %d", cfg.MaxDepth)
	}
	if cfg.Server.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("server.max_upload_mb must be positive, got %d", cfg.Server.MaxUploadMB)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".gotoon.yml", ".gotoon.yaml", "gotoon.yml", "gotoon.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Search up the directory tree
	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root directory
			break
		}
		currentDir = parentDir
	}

	return ""
}

// KeyRenamer returns the key transformation selected by key_casing, or nil
// when keys pass through unchanged.
func (c *Config) KeyRenamer() (func(string) string, error) {
	switch c.KeyCasing {
	case "", CasingOriginal:
		return nil, nil
	case CasingSnake:
		return strcase.ToSnake, nil
	case CasingCamel:
		return strcase.ToLowerCamel, nil
	case CasingPascal:
		return strcase.ToCamel, nil
	default:
		return nil, fmt.Errorf("unknown key_casing %q (want original, snake, camel, or pascal)", c.KeyCasing)
	}
}

// MaxUploadBytes converts the configured upload cap to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// ExtensionAllowed reports whether a filename's extension is accepted for
// upload. The comparison is case-insensitive on the extension only.
func (c *Config) ExtensionAllowed(filename string) bool {
	ext := filepath.Ext(filename)
	for _, allowed := range c.Server.AllowedExtensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}
