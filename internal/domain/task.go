package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// TaskType selects the prompt template and payload transform for a task.
type TaskType string

// Supported task types.
const (
	TaskTypePhoto   TaskType = "photo"
	TaskTypeReviews TaskType = "reviews"
	TaskTypeText    TaskType = "text"
)

// ParseTaskType validates s against the supported task types.
func ParseTaskType(s string) (TaskType, error) {
	switch t := TaskType(s); t {
	case TaskTypePhoto, TaskTypeReviews, TaskTypeText:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %w: %q", ErrValidation, ErrUnknownTaskType, s)
	}
}

// String returns the wire name of the task type.
func (t TaskType) String() string {
	return string(t)
}

// Task is one unit of analysis work extracted from a queue message.
// It is immutable after construction.
type Task struct {
	taskType TaskType
	id       string
	payload  []json.RawMessage
}

// NewTask validates its inputs and constructs a Task. The payload items are
// copied so later changes to the caller's slice do not leak in.
func NewTask(taskType TaskType, id string, payload []json.RawMessage) (*Task, error) {
	if _, err := ParseTaskType(string(taskType)); err != nil {
		return nil, err
	}
	if err := validateTaskID(id); err != nil {
		return nil, err
	}

	items := make([]json.RawMessage, len(payload))
	for i, item := range payload {
		items[i] = append(json.RawMessage(nil), item...)
	}

	return &Task{
		taskType: taskType,
		id:       id,
		payload:  items,
	}, nil
}

// Type returns the task type.
func (t *Task) Type() TaskType {
	return t.taskType
}

// ID returns the opaque task identifier.
func (t *Task) ID() string {
	return t.id
}

// Payload returns a copy of the ordered payload items.
func (t *Task) Payload() []json.RawMessage {
	items := make([]json.RawMessage, len(t.payload))
	for i, item := range t.payload {
		items[i] = append(json.RawMessage(nil), item...)
	}
	return items
}

// taskMessage is the inbound queue message body. Unknown fields are ignored.
type taskMessage struct {
	TaskType *string        `json:"task_type"`
	TaskID   *string        `json:"task_id"`
	Payload  json.RawMessage `json:"payload"`
}

// DecodeTask parses a queue message body into a Task.
// A missing payload is treated as an empty list.
func DecodeTask(body []byte) (*Task, error) {
	var msg taskMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrValidation, ErrMalformedMessage, err)
	}

	if msg.TaskType == nil {
		return nil, fmt.Errorf("%w: task_type is required", ErrValidation)
	}
	taskType, err := ParseTaskType(*msg.TaskType)
	if err != nil {
		return nil, err
	}

	if msg.TaskID == nil {
		return nil, fmt.Errorf("%w: task_id is required", ErrValidation)
	}

	var payload []json.RawMessage
	if len(msg.Payload) > 0 && string(msg.Payload) != "null" {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: payload must be a list", ErrValidation)
		}
	}

	return NewTask(taskType, *msg.TaskID, payload)
}

// validateTaskID checks that id can serve as a single bus subject token.
func validateTaskID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: task_id cannot be empty", ErrValidation)
	}
	if strings.ContainsAny(id, "*>") || strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: task_id %q contains whitespace or wildcard characters", ErrValidation, id)
	}
	return nil
}
