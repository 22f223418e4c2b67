package domain

import "errors"

// Error taxonomy shared across the pipeline. Components wrap these with
// fmt.Errorf("%w: ...") and callers classify with errors.Is.
var (
	// ErrValidation is returned when a task message fails validation.
	// The condition is permanent: redelivering the same message cannot fix it.
	ErrValidation = errors.New("validation failed")

	// ErrMalformedMessage is returned when a message body is not a JSON object.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrUnknownTaskType is returned for a task_type outside the supported set.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrGeneration is returned when the generation backend fails.
	ErrGeneration = errors.New("generation failed")

	// ErrPublish is returned when a fragment cannot be delivered to the bus.
	ErrPublish = errors.New("publish failed")

	// ErrConnection is returned when a transport connection cannot be established.
	ErrConnection = errors.New("connection failed")
)

// IsPermanent reports whether err describes a condition that redelivery
// cannot resolve.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrValidation)
}
