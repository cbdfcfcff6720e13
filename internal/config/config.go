// Package config defines elotrack configuration and its loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and ELOTRACK_ env vars over the defaults.
// - Errors wrap this package's sentinels so callers can use errors.Is.
package config

import (
	"os"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Backend names the storage engine: bolt, sqlite, file or memory.
	Backend string `koanf:"backend"`

	// DataPath is where the backend keeps the roster.
	DataPath string `koanf:"data_path"`

	// Bucket namespaces the records inside a bolt or sqlite store, so one
	// file can hold several rosters.
	Bucket string `koanf:"bucket"`

	// BoltTimeout bounds the wait for another process's lock on the bolt file.
	BoltTimeout time.Duration `koanf:"bolt_timeout"`

	// FileMode is the permission of newly created store files. Octal
	// strings such as "0640" are accepted.
	FileMode os.FileMode `koanf:"file_mode"`

	// ExportFile is the suggested file name for exported documents.
	ExportFile string `koanf:"export_file"`

	// Language is the BCP 47 tag whose collation orders leaderboard ties.
	Language string `koanf:"language"`

	// MarkerColor is the color of marked dates on the chart.
	MarkerColor string `koanf:"marker_color"`

	// ShowGraduated is the default visibility of graduated participants.
	ShowGraduated bool `koanf:"show_graduated"`

	// Metrics dumps the Prometheus registry after each command.
	Metrics bool `koanf:"metrics"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "warn",
		LogFormat:     "text",
		Backend:       "bolt",
		DataPath:      "elotrack.db",
		Bucket:        "elotrack",
		BoltTimeout:   time.Second,
		FileMode:      0o600,
		ExportFile:    "debate-elo.json",
		Language:      "en",
		MarkerColor:   "red",
		ShowGraduated: false,
		Metrics:       false,
	}
}
