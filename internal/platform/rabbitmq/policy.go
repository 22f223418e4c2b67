package rabbitmq

import (
	"strconv"

	"github.com/phrazzld/scry-analyzer/internal/domain"
	"github.com/phrazzld/scry-analyzer/internal/task"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AttemptsHeader counts how many times a message has been processed and
// failed. It is carried on republished copies.
const AttemptsHeader = "x-attempts"

// action is the acknowledgement applied to a delivery.
type action int

const (
	// actionAck removes the delivery from the queue.
	actionAck action = iota
	// actionRequeue returns the delivery to the queue unchanged.
	actionRequeue
	// actionRetry publishes a copy with an incremented attempt counter and
	// acknowledges the original.
	actionRetry
	// actionDeadLetter rejects the delivery without requeue.
	actionDeadLetter
)

func (a action) String() string {
	switch a {
	case actionAck:
		return "ack"
	case actionRequeue:
		return "requeue"
	case actionRetry:
		return "retry"
	case actionDeadLetter:
		return "dead_letter"
	default:
		return "unknown"
	}
}

// Policy maps processing results to acknowledgements.
type Policy struct {
	// MaxAttempts bounds processing attempts per message. Zero requeues
	// failed messages indefinitely.
	MaxAttempts int

	// DeadLetterInvalid rejects messages that failed validation on the
	// first attempt.
	DeadLetterInvalid bool

	// deadLetterRouted is set when the work queue has a dead-letter target.
	// Without one a rejected message would be discarded, so it is requeued.
	deadLetterRouted bool
}

// decide returns the action for a result, given how many earlier attempts
// the delivery records.
func (p Policy) decide(result task.Result, attempts int) action {
	act := p.route(result, attempts)
	if act == actionDeadLetter && !p.deadLetterRouted {
		return actionRequeue
	}
	return act
}

func (p Policy) route(result task.Result, attempts int) action {
	if result.Outcome == task.OutcomeAck {
		return actionAck
	}
	if p.DeadLetterInvalid && domain.IsPermanent(result.Err) {
		return actionDeadLetter
	}
	if p.MaxAttempts <= 0 {
		return actionRequeue
	}
	if attempts+1 >= p.MaxAttempts {
		return actionDeadLetter
	}
	return actionRetry
}

// deliveryAttempts returns the earlier attempts recorded for d. A broker
// redelivery without an attempts header counts as one, so a message that
// crashes the process is bounded too.
func deliveryAttempts(d amqp.Delivery) int {
	if _, ok := d.Headers[AttemptsHeader]; !ok && d.Redelivered {
		return 1
	}
	return attemptsFrom(d.Headers)
}

// attemptsFrom reads AttemptsHeader. Missing or unreadable values count as
// zero.
func attemptsFrom(headers amqp.Table) int {
	v, ok := headers[AttemptsHeader]
	if !ok {
		return 0
	}

	var n int64
	switch val := v.(type) {
	case int:
		n = int64(val)
	case int8:
		n = int64(val)
	case int16:
		n = int64(val)
	case int32:
		n = int64(val)
	case int64:
		n = val
	case uint8:
		n = int64(val)
	case uint16:
		n = int64(val)
	case uint32:
		n = int64(val)
	case float32:
		n = int64(val)
	case float64:
		n = int64(val)
	case string:
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}

	if n < 0 {
		return 0
	}
	return int(n)
}
