package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names a task lifecycle transition.
type EventType string

// Lifecycle event types.
const (
	// TaskStarted is emitted once a task has been validated and generation
	// has been dispatched.
	TaskStarted EventType = "task.started"

	// TaskFinished is emitted once a task has reached a terminal state,
	// including tasks rejected before dispatch.
	TaskFinished EventType = "task.finished"
)

// TaskEvent describes one lifecycle transition of a task. It carries plain
// values so handlers do not depend on the pipeline packages.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is the lifecycle transition
	Type EventType `json:"type"`

	// TaskID is the producer-assigned task identifier; empty when the
	// message could not be decoded
	TaskID string `json:"task_id,omitempty"`

	// TaskType is the wire name of the task type; empty when unknown
	TaskType string `json:"task_type,omitempty"`

	// Status is the task state at the time of the event
	Status string `json:"status"`

	// Outcome is the queue outcome (ack or requeue), set on TaskFinished
	Outcome string `json:"outcome,omitempty"`

	// Dispatched reports whether generation was started for the task,
	// set on TaskFinished
	Dispatched bool `json:"dispatched,omitempty"`

	// Fragments is the number of fragments successfully published
	Fragments int `json:"fragments,omitempty"`

	// PublishFailures is the number of fragments that failed to publish
	PublishFailures int `json:"publish_failures,omitempty"`

	// Duration is the time spent on the task, set on TaskFinished
	Duration time.Duration `json:"duration,omitempty"`

	// Error is the failure message, if any
	Error string `json:"error,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewTaskEvent creates a TaskEvent of the given type with a fresh ID.
func NewTaskEvent(eventType EventType, taskID, taskType, status string) *TaskEvent {
	return &TaskEvent{
		ID:        uuid.New(),
		Type:      eventType,
		TaskID:    taskID,
		TaskType:  taskType,
		Status:    status,
		CreatedAt: time.Now(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the pipeline to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *TaskEvent) error {
	return nil
}
