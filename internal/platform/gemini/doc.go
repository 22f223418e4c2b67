// Package gemini provides a streaming generation.Backend backed by Google's
// Gemini API.
//
// This package is an infrastructure adapter: it translates a
// generation.Request (system turn plus typed user parts) into genai contents
// and pushes every streamed text chunk to the caller as it arrives.
//
// Key behaviours:
//
// 1. Content mapping:
//   - The system turn becomes the system instruction
//   - Text parts map to text parts, in order
//   - Image references are resolved into inline bytes or file data
//
// 2. Sampling:
//   - Temperature, top-p, top-k and the token budget map directly
//   - The multiplicative repetition penalty maps to a frequency penalty
//
// 3. Error handling:
//   - Transient API failures (429, 5xx) are retried with exponential backoff
//     and jitter, but only until the first fragment has been emitted
//   - Safety blocks are reported as generation.ErrContentBlocked
package gemini
