// Package config loads the workbench host configuration from a TOML
// file, layered with environment variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the host configuration file name inside the config dir.
const FileName = "workbench.toml"

// envPrefix namespaces the override variables (WORKBENCH_LOG_LEVEL etc).
const envPrefix = "WORKBENCH_"

// Config is the host configuration. Zero values fall back to defaults.
type Config struct {
	// PackageManager is the command used to add, remove and upgrade
	// plugin packages.
	PackageManager string `toml:"packageManager"`

	// Scaffold is the command used to run plugin generators.
	Scaffold string `toml:"scaffold"`

	// Debug switches plugin operations to local mock mode, skipping
	// the package manager entirely.
	Debug bool `toml:"debug"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"logLevel"`

	// BuiltinDir overrides the directory the built-in plugin modules
	// are loaded from.
	BuiltinDir string `toml:"builtinDir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PackageManager: "yarn",
		Scaffold:       "workbench-scaffold",
		LogLevel:       "info",
	}
}

// Load reads the configuration file at path, fills unset fields from
// defaults, applies environment overrides and validates the result. A
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus environment only.
	case err != nil:
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultPath returns the default configuration file location,
// honoring XDG_CONFIG_HOME.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "workbench", FileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(home, ".config", "workbench", FileName)
}

// Level maps the configured log level to a slog level.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(envPrefix + "PACKAGE_MANAGER"); ok {
		c.PackageManager = v
	}
	if v, ok := os.LookupEnv(envPrefix + "SCAFFOLD"); ok {
		c.Scaffold = v
	}
	if v, ok := os.LookupEnv(envPrefix + "DEBUG"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv(envPrefix + "BUILTIN_DIR"); ok {
		c.BuiltinDir = v
	}
}

func (c Config) validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.PackageManager == "" {
		return fmt.Errorf("packageManager must not be empty")
	}
	return nil
}
