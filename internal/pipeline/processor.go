package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-analyzer/internal/domain"
	"github.com/phrazzld/scry-analyzer/internal/events"
	"github.com/phrazzld/scry-analyzer/internal/generation"
	"github.com/phrazzld/scry-analyzer/internal/platform/logger"
	"github.com/phrazzld/scry-analyzer/internal/task"
)

// Publisher delivers fragments to output channels.
type Publisher interface {
	Publish(ctx context.Context, channel string, fragment domain.Fragment) error
}

// RequestBuilder turns a task payload into a generation request.
type RequestBuilder interface {
	Build(taskType domain.TaskType, payload []json.RawMessage) (generation.Request, error)
}

// Generator starts a streaming generation call.
type Generator interface {
	Stream(ctx context.Context, req generation.Request, maxNewTokens int) *generation.Stream
}

// Config holds the processor settings.
type Config struct {
	// Namespace prefixes every output channel: "<namespace>.<task_id>"
	Namespace string

	// MaxNewTokens is the token budget per generation call
	MaxNewTokens int
}

// Processor handles one queue message at a time per caller. It is safe for
// concurrent use by multiple consumer slots.
type Processor struct {
	builder   RequestBuilder
	generator Generator
	publisher Publisher
	emitter   events.EventEmitter
	config    Config
	logger    *slog.Logger
}

// NewProcessor creates a Processor. A nil emitter disables lifecycle events.
func NewProcessor(
	builder RequestBuilder,
	generator Generator,
	publisher Publisher,
	emitter events.EventEmitter,
	config Config,
	logger *slog.Logger,
) (*Processor, error) {
	if builder == nil {
		return nil, errors.New("request builder cannot be nil")
	}
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if publisher == nil {
		return nil, errors.New("publisher cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.Namespace == "" {
		return nil, errors.New("namespace cannot be empty")
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	if config.MaxNewTokens <= 0 {
		config.MaxNewTokens = generation.DefaultMaxNewTokens
	}

	return &Processor{
		builder:   builder,
		generator: generator,
		publisher: publisher,
		emitter:   emitter,
		config:    config,
		logger:    logger.With("component", "task_processor"),
	}, nil
}

// streamStats counts publish results for one task.
type streamStats struct {
	dispatched bool
	published  int
	failures   int
}

// Process handles one raw queue message body and returns the queue outcome.
//
// Messages that fail decoding, validation or prompt building are requeued
// without publishing anything. Once generation has been dispatched, the
// terminal fragment is always published last, whether generation succeeded
// or not. Generation is never cancelled by ctx once started.
//
// Log records build on the logger carried by ctx, when there is one.
func (p *Processor) Process(ctx context.Context, body []byte) (result task.Result) {
	start := time.Now()
	machine := task.NewMachine()
	stats := &streamStats{}
	log := logger.FromContextOrDefault(ctx, p.logger)
	var t *domain.Task

	defer func() {
		p.emitFinished(ctx, t, result, stats, time.Since(start))
	}()

	// fail records err against the stage the task reached.
	fail := func(msg string, err error) task.Result {
		log.ErrorContext(ctx, msg,
			"error", err,
			"stage", machine.Status(),
			"fragments", stats.published,
			"publish_failures", stats.failures,
			"duration_ms", time.Since(start).Milliseconds())
		machine.Fail()
		return task.Failed(err)
	}

	if err := machine.Transition(task.StatusValidating); err != nil {
		return fail("invalid task state", err)
	}

	t, err := domain.DecodeTask(body)
	if err != nil {
		log = log.With("body_bytes", len(body))
		return fail("rejecting task message", err)
	}

	log = log.With("task_id", t.ID(), "task_type", t.Type().String())

	req, err := p.builder.Build(t.Type(), t.Payload())
	if err != nil {
		return fail("failed to build prompt", err)
	}

	if err := machine.Transition(task.StatusDispatching); err != nil {
		return fail("invalid task state", err)
	}
	stats.dispatched = true
	p.emit(ctx, log, events.NewTaskEvent(events.TaskStarted, t.ID(), t.Type().String(), string(machine.Status())))

	if err := p.dispatch(ctx, log, machine, t, req, stats); err != nil {
		return fail("task failed", err)
	}

	if err := machine.Transition(task.StatusCompleted); err != nil {
		return fail("invalid task state", err)
	}
	log.InfoContext(ctx, "task completed",
		"fragments", stats.published,
		"publish_failures", stats.failures,
		"duration_ms", time.Since(start).Milliseconds())
	return task.Completed()
}

// dispatch streams the generation for t to its output channel. The terminal
// fragment is published by a deferred call so it follows every other publish
// on all paths out of this function.
func (p *Processor) dispatch(
	ctx context.Context,
	log *slog.Logger,
	machine *task.Machine,
	t *domain.Task,
	req generation.Request,
	stats *streamStats,
) error {
	channel := domain.ChannelName(p.config.Namespace, t.ID())
	detached := context.WithoutCancel(ctx)

	defer p.publishTerminal(detached, log, channel, t.Type(), stats)

	if err := machine.Transition(task.StatusStreaming); err != nil {
		return err
	}

	stream := p.generator.Stream(detached, req, p.config.MaxNewTokens)
	// Runs before the terminal publish; frees the backend if the loop
	// below is left early.
	defer func() {
		if n := stream.Drain(); n > 0 {
			log.WarnContext(detached, "discarded unpublished fragments", "fragments", n)
		}
	}()

	for fragment := range stream.Fragments() {
		p.publish(detached, log, channel, domain.Fragment{Message: fragment, TaskType: t.Type()}, stats)
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("task %s: %w", t.ID(), err)
	}
	return nil
}

func (p *Processor) publish(ctx context.Context, log *slog.Logger, channel string, fragment domain.Fragment, stats *streamStats) {
	if err := p.publisher.Publish(ctx, channel, fragment); err != nil {
		stats.failures++
		log.WarnContext(ctx, "failed to publish fragment",
			"error", err,
			"channel", channel,
			"terminal", fragment.IsTerminal())
		return
	}
	stats.published++
}

func (p *Processor) publishTerminal(ctx context.Context, log *slog.Logger, channel string, taskType domain.TaskType, stats *streamStats) {
	p.publish(ctx, log, channel, domain.TerminalFragment(taskType), stats)
}

func (p *Processor) emitFinished(ctx context.Context, t *domain.Task, result task.Result, stats *streamStats, elapsed time.Duration) {
	log := logger.FromContextOrDefault(ctx, p.logger)
	if result.Status == "" {
		// Process is unwinding from a panic.
		result = task.Failed(errors.New("task processing panicked"))
	}

	var taskID, taskType string
	if t != nil {
		taskID, taskType = t.ID(), t.Type().String()
	}

	event := events.NewTaskEvent(events.TaskFinished, taskID, taskType, string(result.Status))
	event.Outcome = string(result.Outcome)
	event.Dispatched = stats.dispatched
	event.Fragments = stats.published
	event.PublishFailures = stats.failures
	event.Duration = elapsed
	if result.Err != nil {
		event.Error = result.Err.Error()
	}
	p.emit(ctx, log, event)
}

func (p *Processor) emit(ctx context.Context, log *slog.Logger, event *events.TaskEvent) {
	if err := p.emitter.EmitEvent(context.WithoutCancel(ctx), event); err != nil {
		log.WarnContext(ctx, "failed to emit lifecycle event",
			"error", err,
			"event_type", event.Type)
	}
}
