package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "ANALYZER"

// DeadLetterSuffix names the default dead-letter queue: "<queue_name>.dlq".
const DeadLetterSuffix = ".dlq"

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Config file is optional; ANALYZER_CONFIG_FILE overrides the search path.
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Dead-lettered messages need somewhere to go; without a queue the
	// broker would discard them.
	if cfg.Queue.DeadLetterQueue == "" {
		cfg.Queue.DeadLetterQueue = cfg.Queue.QueueName + DeadLetterSuffix
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("queue.port", 5672)
	v.SetDefault("queue.queue_name", "analysis_queue")
	v.SetDefault("queue.slots", 1)
	v.SetDefault("queue.max_attempts", 5)
	v.SetDefault("queue.dead_letter_invalid", true)

	v.SetDefault("bus.port", 4222)
	v.SetDefault("bus.publish_timeout", "5s")

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)
	v.SetDefault("llm.max_image_bytes", 10<<20)

	v.SetDefault("pipeline.max_new_tokens", 1024)
	v.SetDefault("pipeline.fragment_buffer", 64)
	v.SetDefault("pipeline.prompt_locale", "ru")
}

// bindEnvs registers keys that have no default so AutomaticEnv picks them up
// during Unmarshal.
func bindEnvs(v *viper.Viper) {
	for _, key := range []string{
		"queue.url", "queue.host", "queue.username", "queue.password", "queue.dead_letter_queue",
		"bus.url", "bus.host", "bus.username", "bus.password", "bus.stream", "bus.ensure_stream",
		"llm.gemini_api_key",
	} {
		_ = v.BindEnv(key)
	}
}
