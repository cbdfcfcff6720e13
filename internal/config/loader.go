package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/text/language"
)

// Environment variable names.
const (
	EnvPrefix = "ELOTRACK_"
	EnvConfig = "ELOTRACK_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ELOTRACK_CONFIG is set
//  3. env (prefix ELOTRACK_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ELOTRACK_DATA_PATH -> data_path. Underscores are kept to match the
	// koanf tags on the struct.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields that have a closed set of values.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case "bolt", "sqlite", "file":
		if strings.TrimSpace(c.DataPath) == "" {
			return fmt.Errorf("%w: data_path must not be empty", ErrInvalidConfig)
		}
	case "memory":
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}

	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}

	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}

	if strings.TrimSpace(c.ExportFile) == "" {
		return fmt.Errorf("%w: export_file must not be empty", ErrInvalidConfig)
	}

	if strings.TrimSpace(c.Bucket) == "" {
		return fmt.Errorf("%w: bucket must not be empty", ErrInvalidConfig)
	}
	if c.BoltTimeout <= 0 {
		return fmt.Errorf("%w: bolt_timeout must be positive, got %s", ErrInvalidConfig, c.BoltTimeout)
	}
	if c.FileMode == 0 || c.FileMode&^os.ModePerm != 0 {
		return fmt.Errorf("%w: file_mode must be permission bits, got %#o", ErrInvalidConfig, uint32(c.FileMode))
	}
	if _, err := c.LanguageTag(); err != nil {
		return err
	}
	return nil
}

// LanguageTag parses Language.
func (c *Config) LanguageTag() (language.Tag, error) {
	tag, err := language.Parse(strings.TrimSpace(c.Language))
	if err != nil {
		return language.Und, fmt.Errorf("%w: language %q: %w", ErrInvalidConfig, c.Language, err)
	}
	return tag, nil
}
