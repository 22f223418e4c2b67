// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config file. It provides
// type-safe access to the queue, bus, LLM and pipeline settings needed by the
// analyzer while keeping configuration details separate from processing logic.
package config
