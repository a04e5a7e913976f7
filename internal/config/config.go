// Package config loads the converter settings: the list of named output
// formats offered to the user plus normalization and logging options.
//
// Settings come from a JSON file (config.json by default), can be overridden
// with SHEET2CSV_* environment variables, and finally by command-line flags
// bound through viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultPath = "config.json"
	EnvPrefix   = "SHEET2CSV"
)

// OutputFormat is a named output naming template. Files converted with a
// format are written as <FileName>_<YYYYMMDD>.csv next to the input.
type OutputFormat struct {
	DisplayName string `mapstructure:"display_name"`
	FileName    string `mapstructure:"file_name"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `mapstructure:"level"`

	// Format is the log format: text or json (default: text)
	Format string `mapstructure:"format"`

	// File receives log output when set. The terminal UI discards logs otherwise.
	File string `mapstructure:"file"`
}

type Config struct {
	OutputFormats []OutputFormat `mapstructure:"output_formats"`

	// DateColumns forces the named columns to be treated as dates regardless
	// of how the spreadsheet stores them.
	DateColumns []string `mapstructure:"date_columns"`

	// DateLayouts overrides the ordered list of layouts tried for date text.
	DateLayouts []string `mapstructure:"date_layouts"`

	// Strict fails a file when any date cell cannot be interpreted.
	Strict bool `mapstructure:"strict"`

	// Workers is the number of files converted in parallel (default: 1)
	Workers int `mapstructure:"workers"`

	Log LogConfig `mapstructure:"log"`

	// Source is the config file actually read, empty when none was found.
	Source string `mapstructure:"-"`
}

// FlagBindings maps config keys to command-line flag names.
var FlagBindings = map[string]string{
	"log.level":    "log-level",
	"log.format":   "log-format",
	"log.file":     "log-file",
	"strict":       "strict",
	"workers":      "workers",
	"date_columns": "date-column",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output_formats", []map[string]any{})
	v.SetDefault("date_columns", []string{})
	v.SetDefault("date_layouts", []string{})
	v.SetDefault("strict", false)
	v.SetDefault("workers", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Load reads the config file at path, applies environment overrides and any
// changed flags from fs, and validates the result. A missing file is not an
// error: defaults are used and no output formats are configured.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType(configType(path))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range FlagBindings {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("config bind %s: %w", name, err)
			}
		}
	}

	source := path
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config read %s: %w", path, err)
		}
		source = ""
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	cfg.Source = source

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	}
	return "json"
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	seen := make(map[string]bool)
	for i, f := range c.OutputFormats {
		if strings.TrimSpace(f.DisplayName) == "" {
			errs = append(errs, fmt.Sprintf("output_formats[%d].display_name is required", i))
		}
		if strings.TrimSpace(f.FileName) == "" {
			errs = append(errs, fmt.Sprintf("output_formats[%d].file_name is required", i))
		} else if strings.ContainsAny(f.FileName, `/\`) {
			errs = append(errs, fmt.Sprintf("output_formats[%d].file_name (%q) must not contain path separators", i, f.FileName))
		}
		key := strings.ToLower(f.DisplayName)
		if key != "" && seen[key] {
			errs = append(errs, fmt.Sprintf("output_formats[%d].display_name (%q) is duplicated", i, f.DisplayName))
		}
		seen[key] = true
	}

	if c.Workers <= 0 {
		errs = append(errs, fmt.Sprintf("workers (%d) must be positive", c.Workers))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level (%q) must be one of: debug, info, warn, error", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, fmt.Sprintf("log.format (%q) must be one of: text, json", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Lookup finds an output format by display name or file name, ignoring case.
func (c *Config) Lookup(name string) (*OutputFormat, bool) {
	name = strings.TrimSpace(name)
	for i := range c.OutputFormats {
		f := &c.OutputFormats[i]
		if strings.EqualFold(f.DisplayName, name) || strings.EqualFold(f.FileName, name) {
			return f, true
		}
	}
	return nil, false
}
