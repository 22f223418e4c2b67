// Package events carries task lifecycle events from the pipeline to
// observers such as the metrics collector.
//
// The primary components are:
// - TaskEvent: one lifecycle transition of a task
// - EventHandler: interface for components that react to events
// - EventEmitter: interface for components that publish events
// - InMemoryEventEmitter: synchronous fan-out to registered handlers
package events
