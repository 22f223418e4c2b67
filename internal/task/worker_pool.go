package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// SlotFunc runs one consumer slot until ctx is cancelled or the slot fails.
type SlotFunc func(ctx context.Context, slot int) error

// SlotPool runs a fixed number of consumer slots concurrently. Each slot
// handles at most one task at a time, so the slot count bounds the number of
// tasks in flight.
type SlotPool struct {
	// run is invoked once per slot
	run SlotFunc

	// slotCount is the number of concurrent slots to start
	slotCount int

	// logger for structured logging
	logger *slog.Logger

	// errorHandler is called when a slot exits with an error
	// If nil, errors are only logged
	errorHandler func(slot int, err error)
}

// SlotPoolConfig holds configuration options for the slot pool
type SlotPoolConfig struct {
	// SlotCount determines how many concurrent slots to start
	// If zero or negative, defaults to 1
	SlotCount int
}

// DefaultSlotPoolConfig returns a SlotPoolConfig with one slot, which
// serialises all work through a single backend call at a time.
func DefaultSlotPoolConfig() SlotPoolConfig {
	return SlotPoolConfig{
		SlotCount: 1,
	}
}

// NewSlotPool creates a new slot pool with the specified configuration
func NewSlotPool(run SlotFunc, config SlotPoolConfig, logger *slog.Logger) (*SlotPool, error) {
	if run == nil {
		return nil, errors.New("slot function cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	slotCount := config.SlotCount
	if slotCount <= 0 {
		slotCount = 1
		logger.Warn("invalid slot count specified, using default",
			"specified_count", config.SlotCount,
			"default_count", 1)
	}

	return &SlotPool{
		run:       run,
		slotCount: slotCount,
		logger:    logger.With("component", "slot_pool"),
	}, nil
}

// SetErrorHandler allows setting a custom error handler for slot failures
func (p *SlotPool) SetErrorHandler(handler func(slot int, err error)) {
	p.errorHandler = handler
}

// SlotCount returns the number of slots the pool runs.
func (p *SlotPool) SlotCount() int {
	return p.slotCount
}

// Run starts every slot and blocks until all have returned. The first slot
// failure cancels the others and is returned. Cancelling ctx is a normal
// shutdown and yields nil.
func (p *SlotPool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	p.logger.InfoContext(ctx, "starting slots", "slot_count", p.slotCount)

	for i := 0; i < p.slotCount; i++ {
		slot := i
		g.Go(func() error {
			err := p.runSlot(gctx, slot)
			if err != nil && !errors.Is(err, context.Canceled) {
				p.logger.ErrorContext(ctx, "slot stopped with error", "slot", slot, "error", err)
				if p.errorHandler != nil {
					p.errorHandler(slot, err)
				}
				return err
			}
			p.logger.DebugContext(ctx, "slot stopped", "slot", slot)
			return nil
		})
	}

	err := g.Wait()
	p.logger.InfoContext(ctx, "all slots stopped")
	return err
}

// runSlot invokes the slot function, converting a panic into an error.
func (p *SlotPool) runSlot(ctx context.Context, slot int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("slot %d panicked: %v", slot, r)
		}
	}()
	return p.run(ctx, slot)
}
