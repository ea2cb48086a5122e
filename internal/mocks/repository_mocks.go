package mocks

import (
	"context"
	"time"

	"github.com/exposingwithjay/cybersentinel-backend/internal/models"
	"github.com/exposingwithjay/cybersentinel-backend/internal/repository"
	"github.com/stretchr/testify/mock"
)

// MockRateLimitRepository implements repository.RateLimitRepository
type MockRateLimitRepository struct {
	mock.Mock
}

// TryAcquire claims the client's cooldown slot
func (m *MockRateLimitRepository) TryAcquire(ctx context.Context, clientID string, now time.Time, cooldown time.Duration) (*repository.Lease, error) {
	args := m.Called(ctx, clientID, now, cooldown)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Lease), args.Error(1)
}

// Release restores a lease
func (m *MockRateLimitRepository) Release(ctx context.Context, lease *repository.Lease) error {
	args := m.Called(ctx, lease)
	return args.Error(0)
}

// Get retrieves the entry of one client
func (m *MockRateLimitRepository) Get(ctx context.Context, clientID string) (*models.RateLimitEntry, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RateLimitEntry), args.Error(1)
}

// MockContactLogRepository implements repository.ContactLogRepository
type MockContactLogRepository struct {
	mock.Mock
}

// AppendAccepted writes both log records
func (m *MockContactLogRepository) AppendAccepted(ctx context.Context, entry *models.ContactLogEntry, message *models.ContactMessage, operationalLimit, displayLimit int) error {
	args := m.Called(ctx, entry, message, operationalLimit, displayLimit)
	return args.Error(0)
}

// EnforceRetention trims both logs
func (m *MockContactLogRepository) EnforceRetention(ctx context.Context, operationalLimit, displayLimit int) (int64, error) {
	args := m.Called(ctx, operationalLimit, displayLimit)
	return args.Get(0).(int64), args.Error(1)
}

// ListMessages lists the display log
func (m *MockContactLogRepository) ListMessages(ctx context.Context, filter models.ContactFilter, limit, offset int) ([]models.ContactMessage, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.ContactMessage), args.Get(1).(int64), args.Error(2)
}

// GetMessage retrieves one display record
func (m *MockContactLogRepository) GetMessage(ctx context.Context, id string) (*models.ContactMessage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContactMessage), args.Error(1)
}

// ListLog lists the operational log
func (m *MockContactLogRepository) ListLog(ctx context.Context, limit, offset int) ([]models.ContactLogEntry, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.ContactLogEntry), args.Get(1).(int64), args.Error(2)
}

// Stats returns the dashboard counters
func (m *MockContactLogRepository) Stats(ctx context.Context) (*models.ContactStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContactStats), args.Error(1)
}
