// Package prompt turns a validated task into a generation.Request.
//
// Each task type has a fixed expert persona (the system turn) and an
// analysis instruction (the first user part). Payload items are folded into
// the instruction text or appended as image parts depending on the type.
// Building is pure and deterministic.
package prompt
