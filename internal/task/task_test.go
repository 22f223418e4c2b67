package task

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_HappyPath(t *testing.T) {
	t.Parallel()

	m := NewMachine()
	assert.Equal(t, StatusReceived, m.Status())

	for _, next := range []Status{StatusValidating, StatusDispatching, StatusStreaming, StatusCompleted} {
		require.NoError(t, m.Transition(next))
		assert.Equal(t, next, m.Status())
	}
	assert.True(t, m.Status().Terminal())
	assert.Equal(t, OutcomeAck, OutcomeFor(m.Status()))
}

func TestMachine_InvalidTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from []Status
		to   Status
	}{
		{name: "skip validation", from: nil, to: StatusDispatching},
		{name: "complete before streaming", from: []Status{StatusValidating, StatusDispatching}, to: StatusCompleted},
		{name: "leave terminal state", from: []Status{StatusFailed}, to: StatusValidating},
		{name: "backwards", from: []Status{StatusValidating, StatusDispatching}, to: StatusValidating},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewMachine()
			for _, s := range tt.from {
				require.NoError(t, m.Transition(s))
			}
			before := m.Status()
			assert.Error(t, m.Transition(tt.to))
			assert.Equal(t, before, m.Status())
		})
	}
}

func TestMachine_Fail(t *testing.T) {
	t.Parallel()

	for _, reached := range [][]Status{
		nil,
		{StatusValidating},
		{StatusValidating, StatusDispatching},
		{StatusValidating, StatusDispatching, StatusStreaming},
	} {
		m := NewMachine()
		for _, s := range reached {
			require.NoError(t, m.Transition(s))
		}
		m.Fail()
		assert.Equal(t, StatusFailed, m.Status())
		assert.Equal(t, OutcomeRequeue, OutcomeFor(m.Status()))
	}

	completed := NewMachine()
	for _, s := range []Status{StatusValidating, StatusDispatching, StatusStreaming, StatusCompleted} {
		require.NoError(t, completed.Transition(s))
	}
	completed.Fail()
	assert.Equal(t, StatusCompleted, completed.Status(), "terminal states are final")
}

func TestResults(t *testing.T) {
	t.Parallel()

	ok := Completed()
	assert.Equal(t, OutcomeAck, ok.Outcome)
	assert.Equal(t, StatusCompleted, ok.Status)
	assert.NoError(t, ok.Err)

	cause := errors.New("boom")
	failed := Failed(cause)
	assert.Equal(t, OutcomeRequeue, failed.Outcome)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, cause, failed.Err)
}
