// Package cli implements the elotrack command line: global flags, one
// subcommand per handler, and plain-text output.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/okian/elotrack/internal/adapters/kv"
	"github.com/okian/elotrack/internal/adapters/render"
	"github.com/okian/elotrack/internal/adapters/repository"
	service "github.com/okian/elotrack/internal/app"
	"github.com/okian/elotrack/internal/config"
	"github.com/okian/elotrack/pkg/logger"
	"github.com/okian/elotrack/pkg/metrics"
)

// ErrUsage marks a malformed command line.
var ErrUsage = errors.New("usage error")

// Env carries the process streams so commands can be driven from tests.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultEnv returns the process streams.
func DefaultEnv() Env {
	return Env{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// SetupLogging initializes the global logger from configuration. Logs go
// to stderr so command output on stdout stays machine readable.
func SetupLogging(cfg *config.Config, w io.Writer) error {
	if err := logger.Init(
		logger.WithWriter(w),
		logger.WithFormat(cfg.LogFormat),
		logger.WithLevel(cfg.LogLevel),
	); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// Run parses global flags, opens the store named by cfg, and dispatches
// the subcommand in args.
func Run(ctx context.Context, cfg *config.Config, args []string, env Env) error {
	global := flag.NewFlagSet("elotrack", flag.ContinueOnError)
	global.SetOutput(env.Stderr)
	global.Usage = func() { ShowHelp(env.Stderr) }
	dumpMetrics := global.Bool("metrics", cfg.Metrics, "Print Prometheus metrics after the command")
	backendName := global.String("backend", cfg.Backend, "Storage backend: bolt, sqlite, file or memory")
	dataPath := global.String("data", cfg.DataPath, "Storage path")
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}

	rest := global.Args()
	if len(rest) == 0 || rest[0] == "help" || rest[0] == "-h" || rest[0] == "--help" {
		ShowHelp(env.Stdout)
		return nil
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		ShowHelp(env.Stderr)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, rest[0])
	}

	kind, err := kv.ParseKind(*backendName)
	if err != nil {
		return err
	}
	tag, err := cfg.LanguageTag()
	if err != nil {
		return err
	}
	backend, err := kv.Open(kind, *dataPath,
		kv.WithBucket(cfg.Bucket),
		kv.WithOpenTimeout(cfg.BoltTimeout),
		kv.WithFileMode(cfg.FileMode),
	)
	if err != nil {
		return fmt.Errorf("open %s store: %w", kind, err)
	}
	defer func() {
		if cerr := backend.Close(); cerr != nil {
			logger.Get().Warn(ctx, "closing store failed", logger.Error(cerr))
		}
	}()

	store, err := repository.Open(ctx, backend, repository.WithLogger(logger.Named("repository")))
	if err != nil {
		return err
	}
	svc := service.New(store,
		service.WithLogger(logger.Named("service")),
		service.WithRenderer(render.New(
			render.WithLanguage(tag),
			render.WithMarkerColor(cfg.MarkerColor),
		)),
		service.WithExportFileName(cfg.ExportFile),
	)

	logger.Get().Debug(ctx, "running command",
		logger.String("command", rest[0]),
		logger.String("backend", string(kind)),
		logger.String("data", *dataPath),
	)

	runErr := cmd(ctx, &runner{cfg: cfg, svc: svc, env: env}, rest[1:])
	if *dumpMetrics {
		if err := metrics.WriteText(env.Stdout); err != nil {
			logger.Get().Warn(ctx, "metrics dump failed", logger.Error(err))
		}
	}
	return runErr
}

// ShowHelp prints usage information for elotrack.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `elotrack - debate Elo rating tracker
===================================

Tracks ratings for debaters and teams across practice rounds and
tournaments, keeping a dated history for each participant.

Usage:
  elotrack [global options] <command> [options]

Global options:
  -metrics
        Print Prometheus metrics after the command
  -backend string
        Storage backend: bolt, sqlite, file or memory (default from config)
  -data string
        Storage path (default from config)

Commands:
  register    -name string -elo number [-graduated]
        Add a participant, or overwrite one with the same name
  practice    -a string -b string -result number
        Settle a practice round; result 1 means A won, 0 means B won
  tournament  -name string -rounds int -wins int -teams int
              [-novice int] [-jv int] [-varsity int] [-bonus number] [-strength number]
        Settle a tournament result against the roster average
  list        [-all]
        List participants in roster order
  leaderboard [-all] [-limit int]
        Rank participants by rating
  chart       [-mark-date YYYY-MM-DD] [-mark-label string]
        Print chart series as JSON
  export      [-out file]
        Write the roster document ("-" for stdout)
  import      -in file
        Replace the roster with a document ("-" for stdin)
  clear       -yes
        Remove every participant
  stats
        Print roster figures as JSON
  help
        Show this help message

Configuration:
  Defaults, then the YAML file named by ELOTRACK_CONFIG, then ELOTRACK_*
  environment variables (ELOTRACK_BACKEND, ELOTRACK_DATA_PATH,
  ELOTRACK_LOG_LEVEL, ELOTRACK_LOG_FORMAT, ELOTRACK_EXPORT_FILE,
  ELOTRACK_SHOW_GRADUATED, ELOTRACK_METRICS, ELOTRACK_BUCKET,
  ELOTRACK_BOLT_TIMEOUT, ELOTRACK_FILE_MODE, ELOTRACK_LANGUAGE,
  ELOTRACK_MARKER_COLOR).

Examples:
  elotrack register -name Alice -elo 1500
  elotrack practice -a Alice -b Bob -result 1
  elotrack tournament -name Alice -rounds 5 -wins 3 -novice 12 -teams 20
  elotrack -backend sqlite -data club.sqlite leaderboard -limit 10
`)
}
