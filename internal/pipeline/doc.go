// Package pipeline implements the per-message task processor: decode and
// validate a queue message, build the prompt, stream the generation to the
// task's output channel and decide the queue outcome.
package pipeline
