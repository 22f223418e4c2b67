package generation

import "context"

// EmitFunc receives generated text fragments in production order. A non-nil
// error tells the backend to stop generating and return that error.
type EmitFunc func(fragment string) error

// Backend defines the interface of a generation service.
// Generate blocks until generation completes, pushing fragments through emit
// as they are produced. It returns nil on normal completion.
type Backend interface {
	Generate(ctx context.Context, req Request, params Params, emit EmitFunc) error
}

// Releaser is implemented by backends holding per-call resources (such as an
// accelerator cache) that must be released after each generation call.
type Releaser interface {
	Release()
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, req Request, params Params, emit EmitFunc) error

// Generate calls f.
func (f BackendFunc) Generate(ctx context.Context, req Request, params Params, emit EmitFunc) error {
	return f(ctx, req, params, emit)
}
