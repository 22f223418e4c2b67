package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-analyzer/internal/config"
	"github.com/phrazzld/scry-analyzer/internal/events"
	"github.com/phrazzld/scry-analyzer/internal/generation"
	"github.com/phrazzld/scry-analyzer/internal/pipeline"
	"github.com/phrazzld/scry-analyzer/internal/platform/gemini"
	"github.com/phrazzld/scry-analyzer/internal/platform/metrics"
	"github.com/phrazzld/scry-analyzer/internal/platform/natsbus"
	"github.com/phrazzld/scry-analyzer/internal/platform/rabbitmq"
	"github.com/phrazzld/scry-analyzer/internal/prompt"
	"github.com/phrazzld/scry-analyzer/internal/task"
	"golang.org/x/sync/errgroup"
)

// application holds the long-lived components and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Output side
	publisher *natsbus.Publisher
	metrics   *metrics.Collector
	emitter   *events.InMemoryEventEmitter

	// Task handling
	processor *pipeline.Processor
	queue     *rabbitmq.Connection
	slots     *task.SlotPool
}

// newApplication connects to the broker and the bus and wires the pipeline.
// Connection failures are returned; anything opened before the failure is
// closed again.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *application, err error) {
	app := &application{
		config: cfg,
		logger: logger,
	}
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	backend, err := gemini.NewBackend(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation backend: %w", err)
	}
	bridge, err := generation.NewBridge(backend, cfg.Pipeline.FragmentBuffer, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generation bridge: %w", err)
	}
	logger.Info("LLM backend initialized", "model", cfg.LLM.ModelName)

	builder, err := prompt.NewBuilder(prompt.Locale(cfg.Pipeline.PromptLocale))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prompt builder: %w", err)
	}

	app.publisher, err = natsbus.Connect(ctx, cfg.Bus, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to output bus: %w", err)
	}

	app.metrics, err = metrics.NewCollector()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics collector: %w", err)
	}
	app.metrics.SetBuildInfo(version)

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(app.metrics)

	app.processor, err = pipeline.NewProcessor(
		builder,
		bridge,
		app.publisher,
		app.emitter,
		pipeline.Config{
			Namespace:    cfg.Bus.Stream,
			MaxNewTokens: cfg.Pipeline.MaxNewTokens,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task processor: %w", err)
	}

	app.queue, err = rabbitmq.Dial(cfg.Queue, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to work queue: %w", err)
	}

	consumer, err := rabbitmq.NewConsumer(
		app.queue.Channel,
		app.processor,
		rabbitmq.ConsumerConfigFrom(cfg.Queue),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue consumer: %w", err)
	}

	app.slots, err = task.NewSlotPool(consumer.RunSlot, task.SlotPoolConfig{
		SlotCount: cfg.Queue.Slots,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create slot pool: %w", err)
	}
	app.slots.SetErrorHandler(func(slot int, err error) {
		logger.Error("consumer slot failed", "slot", slot, "error", err)
	})

	logger.Info("Application initialized successfully", "slots", app.slots.SlotCount())
	return app, nil
}

// Run consumes tasks and serves the ops endpoints until ctx is cancelled or
// either of them fails.
func (app *application) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.slots.Run(gctx)
	})
	g.Go(func() error {
		return app.serveOps(gctx, app.setupRouter())
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("analyzer error: %w", err)
	}
	return nil
}

// cleanup drains the output bus and closes the broker connection. All slots
// have settled their deliveries by the time Run returns.
func (app *application) cleanup() {
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Error("Error closing output bus connection", "error", err)
		}
	}
	if app.queue != nil {
		if err := app.queue.Close(); err != nil {
			app.logger.Error("Error closing work queue connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
