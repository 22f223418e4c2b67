package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/phrazzld/scry-analyzer/internal/config"
	"github.com/phrazzld/scry-analyzer/internal/domain"
	"github.com/phrazzld/scry-analyzer/internal/redact"
)

// Connection settings.
const (
	clientName     = "scry-analyzer"
	connectTimeout = 5 * time.Second
	reconnectWait  = 2 * time.Second
	maxReconnects  = -1
)

// jsPublisher is the subset of jetstream.JetStream used by Publisher.
type jsPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher delivers fragments to JetStream subjects.
type Publisher struct {
	js      jsPublisher
	conn    *nats.Conn
	timeout time.Duration
	logger  *slog.Logger
}

// Connect dials NATS, opens a JetStream context and, when cfg.EnsureStream is
// set, creates or updates a stream capturing "<cfg.Stream>.>".
// Failures wrap domain.ErrConnection.
func Connect(ctx context.Context, cfg config.BusConfig, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	opts := []nats.Option{
		nats.Name(clientName),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", redact.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrlRedacted())
		}),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	url := cfg.NATSURL()
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: nats %s: %s", domain.ErrConnection, redact.URL(url), redact.Error(err))
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%w: jetstream: %v", domain.ErrConnection, err)
	}

	if cfg.EnsureStream {
		if err := ensureStream(ctx, js, cfg.Stream); err != nil {
			nc.Close()
			return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
		}
	}

	logger.InfoContext(ctx, "connected to nats",
		"url", nc.ConnectedUrlRedacted(),
		"namespace", cfg.Stream,
		"ensure_stream", cfg.EnsureStream)

	p, err := NewPublisher(js, cfg.PublishTimeout, logger)
	if err != nil {
		nc.Close()
		return nil, err
	}
	p.conn = nc
	return p, nil
}

// NewPublisher wraps an existing JetStream context.
// A non-positive timeout selects the five second default.
func NewPublisher(js jsPublisher, timeout time.Duration, logger *slog.Logger) (*Publisher, error) {
	if js == nil {
		return nil, errors.New("jetstream cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Publisher{
		js:      js,
		timeout: timeout,
		logger:  logger.With("component", "nats_publisher"),
	}, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, namespace string) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     namespace,
		Subjects: []string{namespace + ".>"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %q: %w", namespace, err)
	}
	return nil
}

// Publish serialises fragment as {"message","task_type"} and publishes it to
// channel, waiting for the JetStream acknowledgement. Failures wrap
// domain.ErrPublish.
func (p *Publisher) Publish(ctx context.Context, channel string, fragment domain.Fragment) error {
	data, err := json.Marshal(fragment)
	if err != nil {
		return fmt.Errorf("%w: encode fragment: %w", domain.ErrPublish, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ack, err := p.js.Publish(ctx, channel, data)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrPublish, channel, err)
	}

	if ack != nil {
		p.logger.DebugContext(ctx, "fragment published",
			"channel", channel,
			"stream", ack.Stream,
			"sequence", ack.Sequence,
			"terminal", fragment.IsTerminal())
	}
	return nil
}

// Close drains the underlying connection, flushing pending publishes.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}
