// Package rabbitmq consumes analysis tasks from a durable RabbitMQ queue.
//
// Each consumer slot owns an AMQP channel with a prefetch of one and handles
// its deliveries synchronously, so a slot never holds more than one
// unacknowledged task. The processing result is mapped to an acknowledgement
// by the redelivery policy in policy.go.
package rabbitmq
