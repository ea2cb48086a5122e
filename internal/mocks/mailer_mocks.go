// Package mocks holds testify mocks shared by package tests.
package mocks

import (
	"context"
	"sync"

	"github.com/exposingwithjay/cybersentinel-backend/internal/mailer"
	"github.com/exposingwithjay/cybersentinel-backend/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockSender implements mailer.Sender and records every envelope it is given
type MockSender struct {
	mock.Mock
	mu        sync.Mutex
	Envelopes []*mailer.Envelope
}

// NewMockSender creates a new MockSender instance
func NewMockSender() *MockSender {
	return &MockSender{Envelopes: make([]*mailer.Envelope, 0)}
}

// Send delivers an envelope
func (m *MockSender) Send(ctx context.Context, env *mailer.Envelope) error {
	m.mu.Lock()
	m.Envelopes = append(m.Envelopes, env)
	m.mu.Unlock()

	args := m.Called(ctx, env)
	return args.Error(0)
}

// Name returns the transport name
func (m *MockSender) Name() string {
	return "mock"
}

// Sent returns the envelopes of the given kind
func (m *MockSender) Sent(kind string) []*mailer.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*mailer.Envelope, 0)
	for _, env := range m.Envelopes {
		if env.Kind == kind {
			out = append(out, env)
		}
	}
	return out
}

// MockNotifier implements services.Notifier
type MockNotifier struct {
	mu        sync.Mutex
	Published []*models.ContactMessage
}

// NewMockNotifier creates a new MockNotifier instance
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{Published: make([]*models.ContactMessage, 0)}
}

// PublishSubmission records a published display record
func (m *MockNotifier) PublishSubmission(msg *models.ContactMessage) {
	m.mu.Lock()
	m.Published = append(m.Published, msg)
	m.mu.Unlock()
}

// Count returns the number of published records
func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Published)
}
