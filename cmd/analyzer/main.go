// Package main implements the entry point for the analyzer worker, which
// consumes marketplace analysis tasks from RabbitMQ, streams LLM output and
// publishes the fragments to per-task NATS subjects.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/phrazzld/scry-analyzer/internal/config"
	"github.com/phrazzld/scry-analyzer/internal/platform/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, slog.Default()); err != nil {
		slog.Error("analyzer stopped with error", "error", err)
		stop()
		log.Fatalf("analyzer: %v", err)
	}
}

// initializeApp loads configuration and sets up structured logging.
func initializeApp() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if _, err := logger.Setup(cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Analyzer configuration loaded",
		"version", version,
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"queue", cfg.Queue.QueueName,
		"slots", cfg.Queue.Slots,
		"namespace", cfg.Bus.Stream,
		"model", cfg.LLM.ModelName,
		"prompt_locale", cfg.Pipeline.PromptLocale)

	return cfg, nil
}

// run builds the application and blocks until ctx is cancelled or a
// component fails.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.cleanup()

	return app.Run(ctx)
}
