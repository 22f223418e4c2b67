package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/phrazzld/scry-analyzer/internal/config"
	"github.com/phrazzld/scry-analyzer/internal/domain"
	"github.com/phrazzld/scry-analyzer/internal/platform/logger"
	"github.com/phrazzld/scry-analyzer/internal/task"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel used by the consumer.
type Channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Cancel(consumer string, noWait bool) error
	Close() error
}

// ChannelOpener opens a fresh channel for a consumer slot.
type ChannelOpener func() (Channel, error)

// Handler processes one message body.
type Handler interface {
	Process(ctx context.Context, body []byte) task.Result
}

// ConsumerConfig holds the queue topology and redelivery settings.
type ConsumerConfig struct {
	// Queue is the durable work queue
	Queue string

	// DeadLetterQueue, when set, receives rejected messages
	DeadLetterQueue string

	// Policy maps processing results to acknowledgements
	Policy Policy
}

// ConsumerConfigFrom derives the consumer settings from the queue
// configuration.
func ConsumerConfigFrom(cfg config.QueueConfig) ConsumerConfig {
	return ConsumerConfig{
		Queue:           cfg.QueueName,
		DeadLetterQueue: cfg.DeadLetterQueue,
		Policy: Policy{
			MaxAttempts:       cfg.MaxAttempts,
			DeadLetterInvalid: cfg.DeadLetterInvalid,
		},
	}
}

// Consumer runs consumer slots against the work queue.
type Consumer struct {
	open    ChannelOpener
	handler Handler
	config  ConsumerConfig
	logger  *slog.Logger
}

// NewConsumer creates a Consumer.
// Without a DeadLetterQueue nothing is dead-lettered: rejected messages are
// requeued instead of being dropped by the broker.
func NewConsumer(open ChannelOpener, handler Handler, cfg ConsumerConfig, log *slog.Logger) (*Consumer, error) {
	if open == nil {
		return nil, errors.New("channel opener cannot be nil")
	}
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Queue == "" {
		return nil, errors.New("queue name cannot be empty")
	}
	cfg.Policy.deadLetterRouted = cfg.DeadLetterQueue != ""
	if !cfg.Policy.deadLetterRouted && (cfg.Policy.MaxAttempts > 0 || cfg.Policy.DeadLetterInvalid) {
		log.Warn("no dead-letter queue configured, rejected tasks will be requeued",
			"queue", cfg.Queue)
	}

	return &Consumer{
		open:    open,
		handler: handler,
		config:  cfg,
		logger:  log.With("component", "queue_consumer", "queue", cfg.Queue),
	}, nil
}

// RunSlot consumes deliveries on a dedicated channel until ctx is cancelled
// or the delivery stream closes. Deliveries are handled one at a time; the
// in-flight delivery is always settled before the slot returns.
func (c *Consumer) RunSlot(ctx context.Context, slot int) error {
	ch, err := c.open()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("%w: set prefetch: %w", domain.ErrConnection, err)
	}
	if err := c.declare(ch); err != nil {
		return err
	}

	tag := fmt.Sprintf("analyzer-%d-%s", slot, ulid.Make())
	deliveries, err := ch.Consume(c.config.Queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%w: consume %s: %w", domain.ErrConnection, c.config.Queue, err)
	}

	log := c.logger.With("slot", slot, "consumer_tag", tag)
	log.InfoContext(ctx, "started consuming")

	for {
		select {
		case <-ctx.Done():
			if err := ch.Cancel(tag, false); err != nil {
				log.WarnContext(ctx, "failed to cancel consumer", "error", err)
			}
			log.InfoContext(ctx, "stopped consuming")
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%w: delivery stream for %s closed", domain.ErrConnection, c.config.Queue)
			}
			c.handle(ctx, log, ch, d)
		}
	}
}

// declare declares the work queue and, when configured, its dead-letter queue.
func (c *Consumer) declare(ch Channel) error {
	var args amqp.Table
	if dlq := c.config.DeadLetterQueue; dlq != "" {
		if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
			return fmt.Errorf("%w: declare dead-letter queue %s: %w", domain.ErrConnection, dlq, err)
		}
		args = amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": dlq,
		}
	}

	if _, err := ch.QueueDeclare(c.config.Queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("%w: declare queue %s: %w", domain.ErrConnection, c.config.Queue, err)
	}
	return nil
}

// handle processes one delivery and settles it. The per-delivery logger
// travels to the handler in ctx.
func (c *Consumer) handle(ctx context.Context, log *slog.Logger, ch Channel, d amqp.Delivery) {
	attempts := deliveryAttempts(d)
	log = log.With("delivery_tag", d.DeliveryTag, "attempts", attempts, "redelivered", d.Redelivered)

	result := c.process(logger.WithLogger(ctx, log), log, d.Body)
	act := c.config.Policy.decide(result, attempts)

	if act != actionAck {
		log.WarnContext(ctx, "task not completed",
			"status", result.Status,
			"action", act.String(),
			"error", result.Err)
	}

	if err := c.settle(ctx, ch, d, act, attempts); err != nil {
		log.ErrorContext(ctx, "failed to settle delivery",
			"action", act.String(),
			"error", err)
	}
}

// process runs the handler, converting a panic into a requeue.
func (c *Consumer) process(ctx context.Context, log *slog.Logger, body []byte) (result task.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "task processing panicked", "panic", r)
			result = task.Failed(fmt.Errorf("processing panic: %v", r))
		}
	}()
	return c.handler.Process(ctx, body)
}

func (c *Consumer) settle(ctx context.Context, ch Channel, d amqp.Delivery, act action, attempts int) error {
	switch act {
	case actionAck:
		return d.Ack(false)
	case actionRequeue:
		return d.Nack(false, true)
	case actionDeadLetter:
		return d.Nack(false, false)
	case actionRetry:
		if err := c.republish(ctx, ch, d, attempts+1); err != nil {
			// Fall back to a plain requeue so the message is not lost.
			if nackErr := d.Nack(false, true); nackErr != nil {
				return errors.Join(err, nackErr)
			}
			return err
		}
		return d.Ack(false)
	default:
		return fmt.Errorf("unknown action %d", act)
	}
}

// republish sends a persistent copy of d to the work queue with the attempt
// counter set to attempts.
func (c *Consumer) republish(ctx context.Context, ch Channel, d amqp.Delivery, attempts int) error {
	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[AttemptsHeader] = int32(attempts)

	err := ch.PublishWithContext(context.WithoutCancel(ctx), "", c.config.Queue, false, false, amqp.Publishing{
		Headers:         headers,
		ContentType:     d.ContentType,
		ContentEncoding: d.ContentEncoding,
		DeliveryMode:    amqp.Persistent,
		CorrelationId:   d.CorrelationId,
		MessageId:       d.MessageId,
		Timestamp:       d.Timestamp,
		Type:            d.Type,
		AppId:           d.AppId,
		Body:            d.Body,
	})
	if err != nil {
		return fmt.Errorf("republish for retry: %w", err)
	}
	return nil
}
