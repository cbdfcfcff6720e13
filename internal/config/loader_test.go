package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/elotrack/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Backend, convey.ShouldEqual, "bolt")
				convey.So(cfg.DataPath, convey.ShouldEqual, "elotrack.db")
				convey.So(cfg.ExportFile, convey.ShouldEqual, "debate-elo.json")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ELOTRACK_BACKEND", "sqlite")
			_ = os.Setenv("ELOTRACK_DATA_PATH", "/tmp/ratings.sqlite")
			_ = os.Setenv("ELOTRACK_SHOW_GRADUATED", "true")
			_ = os.Setenv("ELOTRACK_LOG_FORMAT", "json")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Backend, convey.ShouldEqual, "sqlite")
				convey.So(cfg.DataPath, convey.ShouldEqual, "/tmp/ratings.sqlite")
				convey.So(cfg.ShowGraduated, convey.ShouldBeTrue)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
backend: file
data_path: ratings.json
export_file: club.json
metrics: true
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ELOTRACK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Backend, convey.ShouldEqual, "file")
				convey.So(cfg.DataPath, convey.ShouldEqual, "ratings.json")
				convey.So(cfg.ExportFile, convey.ShouldEqual, "club.json")
				convey.So(cfg.Metrics, convey.ShouldBeTrue)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn") // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
backend: file
data_path: ratings.json
log_level: debug
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ELOTRACK_CONFIG", tmpFile)
			_ = os.Setenv("ELOTRACK_BACKEND", "bolt")
			_ = os.Setenv("ELOTRACK_DATA_PATH", "club.db")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Backend, convey.ShouldEqual, "bolt")     // Overridden by env
				convey.So(cfg.DataPath, convey.ShouldEqual, "club.db") // Overridden by env
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")   // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ELOTRACK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("ELOTRACK_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown backend", func() {
			_ = os.Setenv("ELOTRACK_BACKEND", "postgres")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "postgres")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty data path", func() {
			_ = os.Setenv("ELOTRACK_DATA_PATH", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "data_path must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading storage and rendering settings", func() {
			yamlContent := `
bucket: club
bolt_timeout: 250ms
language: sv
marker_color: blue
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("ELOTRACK_CONFIG", tmpFile)
			_ = os.Setenv("ELOTRACK_FILE_MODE", "0640")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then durations, octal modes and language tags should decode", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Bucket, convey.ShouldEqual, "club")
				convey.So(cfg.BoltTimeout, convey.ShouldEqual, 250*time.Millisecond)
				convey.So(cfg.FileMode, convey.ShouldEqual, os.FileMode(0o640))
				convey.So(cfg.MarkerColor, convey.ShouldEqual, "blue")
				tag, err := cfg.LanguageTag()
				convey.So(err, convey.ShouldBeNil)
				convey.So(tag.String(), convey.ShouldEqual, "sv")
			})
		})

		convey.Convey("When loading config with an unparsable language", func() {
			_ = os.Setenv("ELOTRACK_LANGUAGE", "not a tag")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an invalid boolean", func() {
			_ = os.Setenv("ELOTRACK_METRICS", "sometimes")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"ELOTRACK_CONFIG",
		"ELOTRACK_LOG_LEVEL",
		"ELOTRACK_LOG_FORMAT",
		"ELOTRACK_BACKEND",
		"ELOTRACK_DATA_PATH",
		"ELOTRACK_EXPORT_FILE",
		"ELOTRACK_SHOW_GRADUATED",
		"ELOTRACK_METRICS",
		"ELOTRACK_BUCKET",
		"ELOTRACK_BOLT_TIMEOUT",
		"ELOTRACK_FILE_MODE",
		"ELOTRACK_LANGUAGE",
		"ELOTRACK_MARKER_COLOR",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "elotrack-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
