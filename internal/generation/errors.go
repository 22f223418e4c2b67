package generation

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-analyzer/internal/domain"
)

// Common errors returned by the generation package and its backends.
var (
	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters.
	ErrContentBlocked = fmt.Errorf("%w: content blocked by language model safety filters", domain.ErrGeneration)

	// ErrTransientFailure is returned for temporary errors that might resolve on retry.
	ErrTransientFailure = fmt.Errorf("%w: transient error during generation", domain.ErrGeneration)

	// ErrInvalidConfig is returned when the backend configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrInvalidRequest is returned when a Request does not have the
	// system-then-user turn shape.
	ErrInvalidRequest = errors.New("invalid generation request")
)
