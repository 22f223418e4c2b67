// Package task models the lifecycle of one queue task and runs the
// consumer slots that process tasks.
//
// A task moves through received, validating, dispatching and streaming to
// either completed or failed. The terminal state determines the queue
// outcome: completed tasks are acknowledged, failed tasks are requeued.
package task
