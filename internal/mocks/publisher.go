package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-analyzer/internal/domain"
)

// PublishedFragment is one recorded Publish call.
type PublishedFragment struct {
	Channel  string
	Fragment domain.Fragment
}

// MockPublisher records published fragments for testing.
type MockPublisher struct {
	// PublishFn, when set, decides the result of each call after it is recorded
	PublishFn func(ctx context.Context, channel string, fragment domain.Fragment) error

	mu        sync.Mutex
	published []PublishedFragment
	attempts  int
}

// NewMockPublisher creates a MockPublisher that accepts every fragment.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish records the fragment. Fragments rejected by PublishFn are counted
// as attempts but not recorded as published.
func (m *MockPublisher) Publish(ctx context.Context, channel string, fragment domain.Fragment) error {
	m.mu.Lock()
	m.attempts++
	fn := m.PublishFn
	m.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, channel, fragment); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, PublishedFragment{Channel: channel, Fragment: fragment})
	return nil
}

// Published returns the successfully published fragments in order.
func (m *MockPublisher) Published() []PublishedFragment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedFragment(nil), m.published...)
}

// Messages returns the messages published to channel, in order.
func (m *MockPublisher) Messages(channel string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, p := range m.published {
		if p.Channel == channel {
			out = append(out, p.Fragment.Message)
		}
	}
	return out
}

// Attempts returns the number of Publish calls, successful or not.
func (m *MockPublisher) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}
