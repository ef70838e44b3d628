package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []*GrantEvent
	publishError    error
	closed          bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedEvents: make([]*GrantEvent, 0),
	}
}

// PublishGrant records the event and returns any configured error.
func (m *MockPublisher) PublishGrant(ctx context.Context, event *GrantEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetPublishError configures PublishGrant to fail.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// PublishedEvents returns all published events (for testing).
func (m *MockPublisher) PublishedEvents() []*GrantEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*GrantEvent, len(m.publishedEvents))
	copy(out, m.publishedEvents)
	return out
}
