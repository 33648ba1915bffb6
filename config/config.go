// Package config loads the language server settings.
package config

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the base name of the optional config file in the workspace root.
const FileName = "stylable-lsp"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STYLABLE_LSP"

// Config represents the complete server configuration.
type Config struct {
	LogLevel          string        `json:"logLevel" mapstructure:"logLevel"`
	DependencyTimeout time.Duration `json:"dependencyTimeout" mapstructure:"dependencyTimeout"`
	Extensions        []string      `json:"extensions" mapstructure:"extensions"`
	Ignore            []string      `json:"ignore" mapstructure:"ignore"`
	Watch             bool          `json:"watch" mapstructure:"watch"`
	WatchDebounce     time.Duration `json:"watchDebounce" mapstructure:"watchDebounce"`
	ScanConcurrency   int           `json:"scanConcurrency" mapstructure:"scanConcurrency"`
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:          "INFO",
		DependencyTimeout: 2 * time.Second,
		Extensions:        []string{".st.css"},
		Ignore:            []string{"node_modules", ".git"},
		Watch:             true,
		WatchDebounce:     100 * time.Millisecond,
		ScanConcurrency:   8,
	}
}

var envKeys = map[string]string{
	"logLevel":          "LOG_LEVEL",
	"dependencyTimeout": "DEPENDENCY_TIMEOUT",
	"extensions":        "EXTENSIONS",
	"ignore":            "IGNORE",
	"watch":             "WATCH",
	"watchDebounce":     "WATCH_DEBOUNCE",
	"scanConcurrency":   "SCAN_CONCURRENCY",
}

// Load reads the configuration. An explicit path must exist; otherwise the
// workspace root is searched for stylable-lsp.{yaml,json,toml} and a missing file
// yields the defaults. Environment variables override both.
func Load(path, root string) (*Config, error) {
	v := viper.New()

	// Set defaults
	def := DefaultConfig()
	v.SetDefault("logLevel", def.LogLevel)
	v.SetDefault("dependencyTimeout", def.DependencyTimeout)
	v.SetDefault("extensions", def.Extensions)
	v.SetDefault("ignore", def.Ignore)
	v.SetDefault("watch", def.Watch)
	v.SetDefault("watchDebounce", def.WatchDebounce)
	v.SetDefault("scanConcurrency", def.ScanConcurrency)

	for key, env := range envKeys {
		if err := v.BindEnv(key, EnvPrefix+"_"+env); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		if root != "" {
			v.AddConfigPath(root)
		}
	}

	// Read config file
	if path != "" || root != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, &ConfigError{Field: "file", Message: err.Error()}
			}
			slog.Debug("No config file found, using defaults", "root", root)
		} else {
			slog.Debug("Loaded config file", "path", v.ConfigFileUsed())
		}
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "unmarshal", Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, ok := parseLevel(c.LogLevel); !ok {
		return &ConfigError{Field: "logLevel", Message: "expected DEBUG, INFO, WARN or ERROR, got " + c.LogLevel}
	}
	if len(c.Extensions) == 0 {
		return &ConfigError{Field: "extensions", Message: "at least one extension is required"}
	}
	if c.ScanConcurrency < 1 {
		return &ConfigError{Field: "scanConcurrency", Message: "must be positive"}
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "", "INFO":
		return slog.LevelInfo, true
	case "WARN":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
