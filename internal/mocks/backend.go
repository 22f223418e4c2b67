package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-analyzer/internal/generation"
)

// MockBackend implements generation.Backend and generation.Releaser for testing.
type MockBackend struct {
	// GenerateFn allows test cases to replace the default behaviour entirely
	GenerateFn func(ctx context.Context, req generation.Request, params generation.Params, emit generation.EmitFunc) error

	// Fragments are emitted in order by the default behaviour
	Fragments []string

	// Err is returned after all Fragments have been emitted
	Err error

	mu            sync.Mutex
	requests      []generation.Request
	params        []generation.Params
	releases      int
	active        int
	maxConcurrent int
}

var (
	_ generation.Backend  = (*MockBackend)(nil)
	_ generation.Releaser = (*MockBackend)(nil)
)

// NewMockBackendWithFragments creates a MockBackend that emits fragments and succeeds.
func NewMockBackendWithFragments(fragments ...string) *MockBackend {
	return &MockBackend{Fragments: fragments}
}

// NewMockBackendWithError creates a MockBackend that emits fragments and then fails with err.
func NewMockBackendWithError(err error, fragments ...string) *MockBackend {
	return &MockBackend{Fragments: fragments, Err: err}
}

// Generate implements generation.Backend.
func (m *MockBackend) Generate(ctx context.Context, req generation.Request, params generation.Params, emit generation.EmitFunc) error {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.params = append(m.params, params)
	m.active++
	if m.active > m.maxConcurrent {
		m.maxConcurrent = m.active
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, req, params, emit)
	}

	for _, f := range m.Fragments {
		if err := emit(f); err != nil {
			return err
		}
	}
	return m.Err
}

// Release implements generation.Releaser.
func (m *MockBackend) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
}

// Calls returns the number of Generate calls.
func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns the requests passed to Generate, in call order.
func (m *MockBackend) Requests() []generation.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.Request(nil), m.requests...)
}

// Params returns the sampling parameters passed to Generate, in call order.
func (m *MockBackend) Params() []generation.Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.Params(nil), m.params...)
}

// Releases returns the number of Release calls.
func (m *MockBackend) Releases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releases
}

// MaxConcurrent returns the highest number of Generate calls observed in
// flight at the same time.
func (m *MockBackend) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxConcurrent
}
