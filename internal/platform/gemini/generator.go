package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/phrazzld/scry-analyzer/internal/config"
	"github.com/phrazzld/scry-analyzer/internal/generation"
	"google.golang.org/genai"
)

// imageFetchTimeout bounds a single image download.
const imageFetchTimeout = 30 * time.Second

// streamer is the subset of *genai.Models used by the backend.
type streamer interface {
	GenerateContentStream(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Backend implements generation.Backend using Gemini's streaming API.
type Backend struct {
	// logger is used for structured logging
	logger *slog.Logger

	// config contains LLM-specific configuration
	config config.LLMConfig

	// models issues streaming generation calls
	models streamer

	// images resolves image parts
	images *imageLoader

	// wait blocks for a retry delay or until ctx is done
	wait func(ctx context.Context, d time.Duration) error
}

var _ generation.Backend = (*Backend)(nil)

// NewBackend creates a Gemini client and wraps it in a Backend.
func NewBackend(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Backend, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	cfg, err := validateConfig(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newBackend(logger, cfg, client.Models, &http.Client{Timeout: imageFetchTimeout}), nil
}

func newBackend(logger *slog.Logger, cfg config.LLMConfig, models streamer, httpClient *http.Client) *Backend {
	return &Backend{
		logger: logger.With("component", "gemini_backend", "model", cfg.ModelName),
		config: cfg,
		models: models,
		images: &imageLoader{client: httpClient, maxBytes: cfg.MaxImageBytes},
		wait:   sleepContext,
	}
}

// Generate streams the model's answer to req through emit.
//
// Transient API failures are retried with exponential backoff while nothing
// has been emitted yet. Once output has started, any failure is returned
// as-is so the caller never sees duplicated fragments.
func (b *Backend) Generate(ctx context.Context, req generation.Request, params generation.Params, emit generation.EmitFunc) error {
	system, contents, err := b.images.toContents(ctx, req)
	if err != nil {
		return err
	}
	genConfig := generateConfig(system, params)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	maxRetries := b.config.MaxRetries

	for attempt := 0; ; attempt++ {
		emitted, err := b.streamOnce(ctx, contents, genConfig, emit)
		if err == nil {
			return nil
		}

		if emitted > 0 || !isTransient(err) {
			return err
		}

		if attempt >= maxRetries {
			b.logger.WarnContext(ctx, "Maximum retry attempts reached",
				"max_retries", maxRetries,
				"error", err)
			return fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, maxRetries, err)
		}

		// delay = baseDelay * (2^attempt) * (0.5 + rand(0, 0.5))
		backoffSeconds := float64(b.config.RetryDelaySeconds) * math.Pow(2, float64(attempt))
		delaySeconds := backoffSeconds * (0.5 + rng.Float64()*0.5)
		delay := time.Duration(delaySeconds * float64(time.Second))

		b.logger.InfoContext(ctx, "Retrying after delay",
			"attempt", attempt+1,
			"delay_seconds", delaySeconds,
			"error", err)

		if err := b.wait(ctx, delay); err != nil {
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
	}
}

// streamOnce runs one streaming call and reports how many fragments it emitted.
func (b *Backend) streamOnce(
	ctx context.Context,
	contents []*genai.Content,
	genConfig *genai.GenerateContentConfig,
	emit generation.EmitFunc,
) (int, error) {
	emitted := 0
	for resp, err := range b.models.GenerateContentStream(ctx, b.config.ModelName, contents, genConfig) {
		if err != nil {
			return emitted, err
		}
		if resp == nil {
			continue
		}
		if blocked, reason := isBlocked(resp); blocked {
			return emitted, fmt.Errorf("%w: %s", generation.ErrContentBlocked, reason)
		}

		text := resp.Text()
		if text == "" {
			continue
		}
		if err := emit(text); err != nil {
			return emitted, err
		}
		emitted++
	}
	return emitted, nil
}

// generateConfig maps the sampling policy onto Gemini's parameters.
// Gemini has no multiplicative repetition penalty; the excess over 1 is sent
// as a frequency penalty.
func generateConfig(system *genai.Content, params generation.Params) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr(params.Temperature),
		TopP:              genai.Ptr(params.TopP),
		TopK:              genai.Ptr(float32(params.TopK)),
		MaxOutputTokens:   int32(params.MaxNewTokens),
	}
	if penalty := params.RepetitionPenalty - 1; penalty > 0 {
		cfg.FrequencyPenalty = genai.Ptr(penalty)
	}
	return cfg
}

func isBlocked(resp *genai.GenerateContentResponse) (bool, string) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return true, "prompt blocked: " + string(resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		switch reason := resp.Candidates[0].FinishReason; reason {
		case genai.FinishReasonSafety, genai.FinishReasonBlocklist,
			genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
			return true, "finish reason " + string(reason)
		}
	}
	return false, ""
}

// isTransient reports whether err is worth retrying: rate limiting and
// server-side failures.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Code >= http.StatusInternalServerError
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
