package rabbitmq

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-analyzer/internal/config"
	"github.com/phrazzld/scry-analyzer/internal/domain"
	"github.com/phrazzld/scry-analyzer/internal/redact"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	connectionName = "scry-analyzer"
	heartbeat      = 10 * time.Second
)

// Connection is an AMQP connection shared by all consumer slots.
type Connection struct {
	conn   *amqp.Connection
	logger *slog.Logger
}

// Dial connects to the broker described by cfg. Failures wrap
// domain.ErrConnection and never include credentials.
func Dial(cfg config.QueueConfig, logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(connectionName)

	url := cfg.AMQPURL()
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat:  heartbeat,
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: amqp %s: %s", domain.ErrConnection, redact.URL(url), redact.Error(err))
	}

	logger = logger.With("component", "amqp_connection")
	logger.Info("connected to rabbitmq", "url", redact.URL(url))

	c := &Connection{conn: conn, logger: logger}
	go c.watch()
	return c, nil
}

// watch logs unexpected connection loss.
func (c *Connection) watch() {
	if err, ok := <-c.conn.NotifyClose(make(chan *amqp.Error, 1)); ok && err != nil {
		c.logger.Error("rabbitmq connection closed", "error", redact.Error(err))
	}
}

// Channel opens a new AMQP channel.
func (c *Connection) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%w: open channel: %s", domain.ErrConnection, redact.Error(err))
	}
	return ch, nil
}

// Close closes the connection and every channel opened on it.
func (c *Connection) Close() error {
	if c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}
