// Command worker runs exactly one pipeline stage, selected by the STAGE
// environment variable: load config, build dependencies, run the consume
// loop, wait on SIGINT/SIGTERM, cancel and exit.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/contentpipe/internal/config"
	"github.com/baechuer/contentpipe/internal/health"
	"github.com/baechuer/contentpipe/internal/metrics"
	"github.com/baechuer/contentpipe/internal/pipeline"

	"github.com/baechuer/contentpipe/internal/broker"
)

func newLogger(format string) zerolog.Logger {
	if format == "json" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrapLogger := zerolog.New(os.Stderr)
		bootstrapLogger.Error().Err(err).Msg("config load failed")
		os.Exit(1)
	}

	lg := newLogger(cfg.LogFormat).With().Str("stage", cfg.Stage).Logger()
	lg.Info().Msg("starting worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := pipeline.NewResources(ctx, cfg, lg)
	if err != nil {
		lg.Error().Err(err).Msg("failed to build shared resources")
		os.Exit(1)
	}
	defer res.Close()

	stageCfg, err := pipeline.Build(cfg.Stage, cfg, res, lg)
	if err != nil {
		lg.Error().Err(err).Msg("failed to build stage")
		os.Exit(1)
	}

	health.Serve(ctx, cfg.HealthAddr, health.New(cfg.Stage, metrics.Handler()), lg)

	kernel := broker.NewKernel(cfg.BrokerURL, cfg.Exchange, cfg.ConsumerTag, cfg.ProcessingTimeout, cfg.MaxRetries, lg)
	kernel.Recorder = metrics.Recorder{}

	if err := kernel.Run(ctx, stageCfg); err != nil {
		lg.Error().Err(err).Msg("worker exited with error")
		os.Exit(1)
	}

	// Give the health server's own shutdown goroutine a moment to finish
	// before the process exits.
	time.Sleep(50 * time.Millisecond)
	lg.Info().Msg("worker stopped")
}
