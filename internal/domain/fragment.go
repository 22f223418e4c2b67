package domain

// EndMarker is the reserved message of the terminal fragment.
const EndMarker = "__end__"

// Fragment is one incremental unit of generated text, tagged with the task
// type it belongs to. It is also the outbound wire format.
type Fragment struct {
	Message  string   `json:"message"`
	TaskType TaskType `json:"task_type"`
}

// TerminalFragment returns the end-of-stream fragment for taskType.
func TerminalFragment(taskType TaskType) Fragment {
	return Fragment{Message: EndMarker, TaskType: taskType}
}

// IsTerminal reports whether f marks the end of a stream.
func (f Fragment) IsTerminal() bool {
	return f.Message == EndMarker
}

// ChannelName returns the output channel for a task: "<namespace>.<taskID>".
func ChannelName(namespace, taskID string) string {
	return namespace + "." + taskID
}
