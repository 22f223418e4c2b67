package rabbitmq

import (
	"fmt"
	"testing"

	"github.com/phrazzld/scry-analyzer/internal/domain"
	"github.com/phrazzld/scry-analyzer/internal/task"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestAttemptsFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers amqp.Table
		want    int
	}{
		{name: "nil headers", headers: nil, want: 0},
		{name: "missing header", headers: amqp.Table{"other": 1}, want: 0},
		{name: "int32", headers: amqp.Table{AttemptsHeader: int32(2)}, want: 2},
		{name: "int64", headers: amqp.Table{AttemptsHeader: int64(4)}, want: 4},
		{name: "uint8", headers: amqp.Table{AttemptsHeader: uint8(1)}, want: 1},
		{name: "float64", headers: amqp.Table{AttemptsHeader: float64(3)}, want: 3},
		{name: "string", headers: amqp.Table{AttemptsHeader: "5"}, want: 5},
		{name: "garbage string", headers: amqp.Table{AttemptsHeader: "many"}, want: 0},
		{name: "negative", headers: amqp.Table{AttemptsHeader: int32(-1)}, want: 0},
		{name: "unsupported type", headers: amqp.Table{AttemptsHeader: []byte("1")}, want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, attemptsFrom(tt.headers))
		})
	}
}

func TestActionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ack", actionAck.String())
	assert.Equal(t, "requeue", actionRequeue.String())
	assert.Equal(t, "retry", actionRetry.String())
	assert.Equal(t, "dead_letter", actionDeadLetter.String())
	assert.Equal(t, "unknown", action(42).String())
}

func TestDeliveryAttempts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		delivery amqp.Delivery
		want     int
	}{
		{name: "first delivery", delivery: amqp.Delivery{}, want: 0},
		{name: "broker redelivery counts once", delivery: amqp.Delivery{Redelivered: true}, want: 1},
		{
			name:     "header wins over redelivered flag",
			delivery: amqp.Delivery{Redelivered: true, Headers: amqp.Table{AttemptsHeader: int32(3)}},
			want:     3,
		},
		{
			name:     "header without redelivery",
			delivery: amqp.Delivery{Headers: amqp.Table{AttemptsHeader: int32(2)}},
			want:     2,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, deliveryAttempts(tt.delivery))
		})
	}
}

func TestPolicyDecide_WithoutDeadLetterQueue(t *testing.T) {
	t.Parallel()

	invalid := task.Failed(fmt.Errorf("%w: bad payload", domain.ErrValidation))
	failed := task.Failed(domain.ErrGeneration)

	routed := Policy{MaxAttempts: 3, DeadLetterInvalid: true, deadLetterRouted: true}
	assert.Equal(t, actionDeadLetter, routed.decide(invalid, 0))
	assert.Equal(t, actionDeadLetter, routed.decide(failed, 2))
	assert.Equal(t, actionRetry, routed.decide(failed, 0))

	unrouted := Policy{MaxAttempts: 3, DeadLetterInvalid: true}
	assert.Equal(t, actionRequeue, unrouted.decide(invalid, 0),
		"an invalid message must not be dropped when there is no dead-letter queue")
	assert.Equal(t, actionRequeue, unrouted.decide(failed, 2))
	assert.Equal(t, actionRetry, unrouted.decide(failed, 0))
	assert.Equal(t, actionAck, unrouted.decide(task.Completed(), 2))
}
