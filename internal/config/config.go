package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue" validate:"required"`
	Bus      BusConfig      `mapstructure:"bus" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Pipeline PipelineConfig `mapstructure:"pipeline" validate:"required"`
}

// ServerConfig contains process-level settings: the ops HTTP port
// (health and metrics) and the log level.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// QueueConfig contains the RabbitMQ work queue settings.
type QueueConfig struct {
	// URL, when set, takes precedence over the discrete host/port/credential fields.
	URL       string `mapstructure:"url" validate:"omitempty,url"`
	Host      string `mapstructure:"host" validate:"required_without=URL"`
	Port      int    `mapstructure:"port" validate:"omitempty,gt=0,lt=65536"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	QueueName string `mapstructure:"queue_name" validate:"required"`

	// Slots is the number of independent consumer slots, each with prefetch 1.
	Slots int `mapstructure:"slots" validate:"gte=1,lte=64"`

	// MaxAttempts bounds redelivery of failed tasks. Zero means retry forever.
	MaxAttempts int `mapstructure:"max_attempts" validate:"gte=0"`

	// DeadLetterQueue receives tasks that exhausted their attempts or were
	// rejected as invalid. Empty disables dead-letter routing.
	DeadLetterQueue string `mapstructure:"dead_letter_queue"`

	// DeadLetterInvalid routes malformed tasks straight to the dead-letter
	// path instead of retrying them.
	DeadLetterInvalid bool `mapstructure:"dead_letter_invalid"`
}

// BusConfig contains the NATS JetStream output bus settings.
type BusConfig struct {
	URL  string `mapstructure:"url" validate:"omitempty,url"`
	Host string `mapstructure:"host" validate:"required_without=URL"`
	Port int    `mapstructure:"port" validate:"omitempty,gt=0,lt=65536"`

	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// Stream is the subject namespace; fragments go to "<stream>.<task_id>".
	Stream string `mapstructure:"stream" validate:"required,excludesall=*>"`

	// EnsureStream creates or updates a JetStream stream capturing "<stream>.>".
	EnsureStream bool `mapstructure:"ensure_stream"`

	PublishTimeout time.Duration `mapstructure:"publish_timeout" validate:"gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string `mapstructure:"model_name" validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=60"`
	MaxImageBytes     int64  `mapstructure:"max_image_bytes" validate:"gt=0"`
}

// PipelineConfig contains the task pipeline settings.
type PipelineConfig struct {
	MaxNewTokens   int    `mapstructure:"max_new_tokens" validate:"gt=0"`
	FragmentBuffer int    `mapstructure:"fragment_buffer" validate:"gt=0"`
	PromptLocale   string `mapstructure:"prompt_locale" validate:"oneof=ru en"`
}

// AMQPURL returns the connection URL for the work queue.
func (q QueueConfig) AMQPURL() string {
	if q.URL != "" {
		return q.URL
	}
	u := url.URL{
		Scheme: "amqp",
		Host:   hostPort(q.Host, q.Port, 5672),
		Path:   "/",
	}
	if q.Username != "" {
		u.User = url.UserPassword(q.Username, q.Password)
	}
	return u.String()
}

// NATSURL returns the connection URL for the output bus.
func (b BusConfig) NATSURL() string {
	if b.URL != "" {
		return b.URL
	}
	return fmt.Sprintf("nats://%s", hostPort(b.Host, b.Port, 4222))
}

func hostPort(host string, port, fallback int) string {
	if port == 0 {
		port = fallback
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
