package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-analyzer/internal/config"
	"github.com/phrazzld/scry-analyzer/internal/generation"
)

// Retry defaults applied when the configuration carries unusable values.
const (
	defaultMaxRetries        = 3
	defaultRetryDelaySeconds = 2
	defaultMaxImageBytes     = 10 << 20
)

// validateConfig checks the settings the backend cannot run without and
// normalises the optional ones.
func validateConfig(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (config.LLMConfig, error) {
	if cfg.GeminiAPIKey == "" {
		return cfg, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return cfg, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.MaxRetries < 0 {
		logger.WarnContext(ctx, "Invalid max retries value, using default",
			"value", cfg.MaxRetries,
			"default", defaultMaxRetries)
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelaySeconds < 1 {
		logger.WarnContext(ctx, "Invalid retry delay value, using default",
			"value", cfg.RetryDelaySeconds,
			"default", defaultRetryDelaySeconds)
		cfg.RetryDelaySeconds = defaultRetryDelaySeconds
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = defaultMaxImageBytes
	}

	return cfg, nil
}
