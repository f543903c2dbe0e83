// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/detect"
	"github.com/eivindbakke/merkelapp/internal/importer"
	"github.com/eivindbakke/merkelapp/internal/thumbnail"
)

// DefaultDatabasePath is used when no database location is configured.
const DefaultDatabasePath = "$HOME/.local/share/merkelapp/merkelapp.db"

// DatabasePath resolves the database location from Viper, falling back to
// DefaultDatabasePath. The result has ~ and environment variables expanded.
func DatabasePath() string {
	path := viper.GetString("database.path")
	if path == "" {
		path = DefaultDatabasePath
	}
	return ExpandPath(path)
}

// LoadDetectorConfig loads Ollama detector configuration from Viper and
// environment variables. It follows this precedence:
// 1. Viper configuration (from config file or MERKELAPP_ env vars)
// 2. Direct environment variables (OLLAMA_*)
// 3. Default values
func LoadDetectorConfig() (detect.Config, error) {
	config := detect.DefaultConfig()

	// Load from Viper first
	if v := viper.GetString("ollama.host"); v != "" {
		config.Host = v
	}
	if v := viper.GetString("ollama.model"); v != "" {
		config.Model = v
	}
	if viper.IsSet("ollama.temperature") {
		config.Temperature = viper.GetFloat64("ollama.temperature")
	}
	if v := viper.GetDuration("ollama.timeout"); v > 0 {
		config.Timeout = v
	}
	if viper.IsSet("ollama.max_retries") {
		config.MaxRetries = viper.GetInt("ollama.max_retries")
	}
	if v := viper.GetDuration("ollama.retry_delay"); v > 0 {
		config.RetryDelay = v
	}

	// Fall back to direct environment variables where Viper had nothing
	if !viper.IsSet("ollama.host") {
		if v := os.Getenv("OLLAMA_HOST"); v != "" {
			config.Host = v
		}
	}
	if !viper.IsSet("ollama.model") {
		if v := os.Getenv("OLLAMA_MODEL"); v != "" {
			config.Model = v
		}
	}

	// Validate configuration
	if config.Temperature < 0 || config.Temperature > 2 {
		return config, fmt.Errorf("%w: ollama temperature %.2f out of range [0, 2]", common.ErrInvalidConfig, config.Temperature)
	}
	if config.MaxRetries < 0 {
		return config, fmt.Errorf("%w: ollama max_retries must not be negative, got %d", common.ErrInvalidConfig, config.MaxRetries)
	}

	return config, nil
}

// LoadImportOptions loads directory import settings from Viper. Command-line
// flags bound to the same keys override the config file transparently.
func LoadImportOptions() (importer.Options, error) {
	opts := importer.DefaultOptions()

	if viper.IsSet("import.workers") {
		opts.Workers = viper.GetInt("import.workers")
	}
	if viper.IsSet("thumbnail.size") {
		opts.ThumbnailSize = viper.GetInt("thumbnail.size")
	}
	if v := viper.GetString("thumbnail.format"); v != "" {
		format, err := thumbnail.ParseFormat(v)
		if err != nil {
			return opts, err
		}
		opts.ThumbnailFormat = format
	}

	if opts.Workers < 1 {
		return opts, fmt.Errorf("%w: import workers must be at least 1, got %d", common.ErrInvalidConfig, opts.Workers)
	}
	if opts.ThumbnailSize < 16 {
		return opts, fmt.Errorf("%w: thumbnail size must be at least 16 pixels, got %d", common.ErrInvalidConfig, opts.ThumbnailSize)
	}

	return opts, nil
}

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	// First expand tilde if present
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	// Then expand environment variables
	return os.ExpandEnv(path)
}
