package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-analyzer/internal/domain"
)

// DefaultBufferSize is the capacity of the fragment hand-off channel. When it
// is full the backend goroutine blocks until the consumer catches up.
const DefaultBufferSize = 64

// Bridge runs Backend calls on dedicated goroutines and exposes their output
// as a Stream.
type Bridge struct {
	backend    Backend
	bufferSize int
	logger     *slog.Logger
}

// NewBridge creates a Bridge over backend. A non-positive bufferSize selects
// DefaultBufferSize.
func NewBridge(backend Backend, bufferSize int, logger *slog.Logger) (*Bridge, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bridge{
		backend:    backend,
		bufferSize: bufferSize,
		logger:     logger.With("component", "generation_bridge"),
	}, nil
}

// Stream is the finite, single-use output of one generation call.
type Stream struct {
	fragments chan string
	done      chan struct{}
	err       error
	count     int
}

// Fragments returns the channel of non-empty fragments in production order.
// It is closed once the backend call returns, after every fragment produced
// before the return has been delivered.
func (s *Stream) Fragments() <-chan string {
	return s.fragments
}

// Err waits for the backend call to finish and returns its failure, if any.
// The error wraps domain.ErrGeneration.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// Count waits for the backend call to finish and returns the number of
// fragments it produced.
func (s *Stream) Count() int {
	<-s.done
	return s.count
}

// Drain discards any fragments not yet received and waits for the backend
// call to finish. It returns the number of fragments discarded. Callers that
// stop reading Fragments early must Drain, or the backend stays blocked on a
// full buffer.
func (s *Stream) Drain() int {
	n := 0
	for range s.fragments {
		n++
	}
	<-s.done
	return n
}

// Stream starts generation for req on a new goroutine and returns
// immediately. The caller must drain Fragments; the backend blocks while the
// buffer is full. Cancelling ctx is passed through to the backend.
func (b *Bridge) Stream(ctx context.Context, req Request, maxNewTokens int) *Stream {
	s := &Stream{
		fragments: make(chan string, b.bufferSize),
		done:      make(chan struct{}),
	}

	params := ParamsFor(maxNewTokens)
	go b.run(ctx, s, req, params)

	return s
}

func (b *Bridge) run(ctx context.Context, s *Stream, req Request, params Params) {
	start := time.Now()
	defer close(s.done)
	defer close(s.fragments)
	defer b.release()
	defer func() {
		if r := recover(); r != nil {
			s.err = fmt.Errorf("%w: backend panic: %v", domain.ErrGeneration, r)
			b.logger.ErrorContext(ctx, "generation backend panicked", "panic", r)
		}
	}()

	if err := req.Validate(); err != nil {
		s.err = fmt.Errorf("%w: %w", domain.ErrGeneration, err)
		return
	}

	b.logger.DebugContext(ctx, "starting generation",
		"max_new_tokens", params.MaxNewTokens,
		"user_parts", len(req.User().Parts))

	err := b.backend.Generate(ctx, req, params, func(fragment string) error {
		if fragment == "" {
			return nil
		}
		select {
		case s.fragments <- fragment:
			s.count++
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		if !errors.Is(err, domain.ErrGeneration) {
			err = fmt.Errorf("%w: %w", domain.ErrGeneration, err)
		}
		s.err = err
		b.logger.ErrorContext(ctx, "generation failed",
			"error", err,
			"fragments", s.count,
			"duration_ms", time.Since(start).Milliseconds())
		return
	}

	b.logger.InfoContext(ctx, "generation completed",
		"fragments", s.count,
		"duration_ms", time.Since(start).Milliseconds())
}

func (b *Bridge) release() {
	if r, ok := b.backend.(Releaser); ok {
		r.Release()
	}
}
