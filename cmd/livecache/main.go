// Command livecache watches a live page of an entity service, and can run an
// in-memory fake of that service for demos and tests.
package main

import (
	"context"
	"fmt"
	stdslog "log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/junaikey/livecache/pkg/config"
	"github.com/junaikey/livecache/pkg/logger"
	"github.com/junaikey/livecache/pkg/logger/slog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "livecache",
		Short:         "Keep a filtered, ordered view of an entity collection in sync with its change feed",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./livecache.yaml if present)")

	root.AddCommand(
		watchCmd(&configPath),
		markReadCmd(&configPath),
		fakeServerCmd(),
	)
	return root
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger described by cfg. The returned func releases
// the log file, if any.
func newLogger(cfg config.LoggingConfig) (logger.Logger, func(), error) {
	if cfg.Format == "text" {
		level := stdslog.LevelInfo
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, fmt.Errorf("logging.level: %w", err)
		}
		return slog.NewText(os.Stderr, level), func() {}, nil
	}

	build := logger.New().FromBuffer(os.Stderr).WithLevel(cfg.Level)
	if cfg.Path != "" {
		build = build.FromPath(cfg.Path)
	}
	log, err := build.Make()
	if err != nil {
		return nil, nil, fmt.Errorf("opening log: %w", err)
	}
	return log, func() { _ = log.Close() }, nil
}
