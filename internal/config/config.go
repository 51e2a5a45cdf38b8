package config

import (
	"fmt"
	"time"

	"github.com/dshills/mapforge/internal/config/loader"
	"github.com/dshills/mapforge/internal/history"
	"github.com/dshills/mapforge/internal/logging"
)

// Config holds all mapforge settings.
type Config struct {
	History HistoryConfig `toml:"history" yaml:"history" envPrefix:"HISTORY_"`
	Logging LoggingConfig `toml:"logging" yaml:"logging" envPrefix:"LOG_"`
	Script  ScriptConfig  `toml:"script" yaml:"script" envPrefix:"SCRIPT_"`
}

// HistoryConfig configures undo/redo.
type HistoryConfig struct {
	// MaxItems is the per-stack capacity. Must be greater than zero.
	MaxItems int `toml:"max_items" yaml:"max_items" env:"MAX_ITEMS"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" env:"LEVEL"`
	Format string `toml:"format" yaml:"format" env:"FORMAT"`
}

// ScriptConfig configures Lua script execution.
type ScriptConfig struct {
	Timeout   Duration `toml:"timeout" yaml:"timeout" env:"TIMEOUT"`
	CallLimit int64    `toml:"call_limit" yaml:"call_limit" env:"CALL_LIMIT"`
	Paths     []string `toml:"paths" yaml:"paths" env:"PATHS" envSeparator:":"`
}

// Duration is a time.Duration written as a string such as "5s" in
// config files and environment variables.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		History: HistoryConfig{
			MaxItems: history.DefaultMaxItems,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: string(logging.FormatConsole),
		},
		Script: ScriptConfig{
			Timeout:   Duration{5 * time.Second},
			CallLimit: 10_000_000,
		},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.History.MaxItems <= 0 {
		return &ValidationError{
			Path:    "history.max_items",
			Value:   c.History.MaxItems,
			Message: "must be greater than zero",
		}
	}
	switch c.Logging.Format {
	case "", string(logging.FormatConsole), string(logging.FormatJSON):
	default:
		return &ValidationError{
			Path:    "logging.format",
			Value:   c.Logging.Format,
			Message: "must be console or json",
		}
	}
	if c.Script.Timeout.Duration < 0 {
		return &ValidationError{
			Path:    "script.timeout",
			Value:   c.Script.Timeout,
			Message: "must not be negative",
		}
	}
	return nil
}

// LogLevel returns the parsed logging level.
func (c Config) LogLevel() logging.LogLevel {
	return logging.ParseLogLevel(c.Logging.Level)
}

// Options controls where Load reads from.
type Options struct {
	// Path is the config file. Empty skips the file layer.
	Path string

	// FS reads the config file. Defaults to the OS file system.
	FS loader.FileSystem

	// EnvPrefix defaults to loader.DefaultEnvPrefix.
	EnvPrefix string

	// Environment replaces the process environment when non-nil.
	Environment map[string]string

	// SkipEnv disables the environment layer.
	SkipEnv bool
}

// Load builds a Config from defaults, the config file and the environment,
// then validates it.
func Load(opts Options) (Config, error) {
	cfg := Default()

	if opts.Path != "" {
		fsys := opts.FS
		if fsys == nil {
			fsys = loader.DefaultFS()
		}
		if _, err := loader.NewFileLoaderWithFS(fsys).LoadInto(opts.Path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if !opts.SkipEnv {
		prefix := opts.EnvPrefix
		if prefix == "" {
			prefix = loader.DefaultEnvPrefix
		}
		var envLoader *loader.EnvLoader
		if opts.Environment != nil {
			envLoader = loader.NewEnvLoaderWithEnvironment(prefix, opts.Environment)
		} else {
			envLoader = loader.NewEnvLoader(prefix)
		}
		if err := envLoader.LoadInto(&cfg); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
