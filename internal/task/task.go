package task

import "fmt"

// Status represents the current state of a task.
type Status string

// Possible task status values.
const (
	StatusReceived    Status = "received"
	StatusValidating  Status = "validating"
	StatusDispatching Status = "dispatching"
	StatusStreaming   Status = "streaming"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// transitions lists the allowed successors of each non-terminal state.
var transitions = map[Status][]Status{
	StatusReceived:    {StatusValidating, StatusFailed},
	StatusValidating:  {StatusDispatching, StatusFailed},
	StatusDispatching: {StatusStreaming, StatusFailed},
	StatusStreaming:   {StatusCompleted, StatusFailed},
}

// CanTransition reports whether a task may move from one state to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Machine tracks the state of a single task. It is not safe for concurrent
// use; a task is owned by one slot.
type Machine struct {
	status Status
}

// NewMachine returns a machine in StatusReceived.
func NewMachine() *Machine {
	return &Machine{status: StatusReceived}
}

// Status returns the current state.
func (m *Machine) Status() Status {
	return m.status
}

// Transition moves the machine to next.
func (m *Machine) Transition(next Status) error {
	if !CanTransition(m.status, next) {
		return fmt.Errorf("invalid task transition %s -> %s", m.status, next)
	}
	m.status = next
	return nil
}

// Fail moves the machine to StatusFailed from any non-terminal state.
func (m *Machine) Fail() {
	if !m.status.Terminal() {
		m.status = StatusFailed
	}
}

// Outcome is the acknowledgement decision for a processed queue message.
type Outcome string

// Queue outcomes.
const (
	// OutcomeAck removes the message from the queue.
	OutcomeAck Outcome = "ack"
	// OutcomeRequeue returns the message to the queue for redelivery.
	OutcomeRequeue Outcome = "requeue"
)

// OutcomeFor maps a terminal state to its queue outcome.
func OutcomeFor(s Status) Outcome {
	if s == StatusCompleted {
		return OutcomeAck
	}
	return OutcomeRequeue
}

// Result is the outcome of processing one queue message.
type Result struct {
	// Outcome is the acknowledgement decision
	Outcome Outcome

	// Status is the terminal state reached
	Status Status

	// Err is the failure cause; nil for completed tasks
	Err error
}

// Completed returns the result of a successful task.
func Completed() Result {
	return Result{Outcome: OutcomeAck, Status: StatusCompleted}
}

// Failed returns the result of a failed task.
func Failed(err error) Result {
	return Result{Outcome: OutcomeRequeue, Status: StatusFailed, Err: err}
}
