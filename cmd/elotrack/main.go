package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/elotrack/internal/cli"
	"github.com/okian/elotrack/internal/config"
	"github.com/okian/elotrack/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	if err := cli.SetupLogging(cfg, os.Stderr); err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if err := cli.Run(ctx, cfg, os.Args[1:], cli.DefaultEnv()); err != nil {
		logger.Get().Debug(ctx, "command failed", logger.Error(err))
		_, _ = os.Stderr.WriteString("elotrack: " + err.Error() + "\n")
		return cli.ExitCode(err)
	}
	return 0
}
