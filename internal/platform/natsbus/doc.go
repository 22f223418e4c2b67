// Package natsbus publishes stream fragments to per-task NATS JetStream
// subjects.
package natsbus
