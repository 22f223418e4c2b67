// Package generation models a structured multimodal generation request and
// bridges a blocking, push-style generation Backend into a fragment stream
// that the task pipeline can consume.
//
// The Backend interface is the boundary between the pipeline and the LLM
// service (Gemini in production). A Bridge runs each Backend call on its own
// goroutine and hands fragments over a buffered channel, preserving
// production order and dropping empty fragments.
package generation
