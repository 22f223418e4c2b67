// Package domain defines the core entities of the analyzer: the analysis Task
// extracted from a queue message, the StreamFragment published for it, the
// per-task output channel naming, and the error taxonomy shared by the
// pipeline components.
package domain
