package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/exposingwithjay/cybersentinel-backend/internal/metrics"
	"github.com/exposingwithjay/cybersentinel-backend/internal/mocks"
	"github.com/exposingwithjay/cybersentinel-backend/internal/models"
	"github.com/exposingwithjay/cybersentinel-backend/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLogs(t *testing.T, logs repository.ContactLogRepository, n int) {
	t.Helper()
	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("msg_%02d", i)
		at := base.Add(time.Duration(i) * time.Minute)
		err := logs.AppendAccepted(context.Background(),
			&models.ContactLogEntry{ID: id, Timestamp: at, Subject: "s", Message: "m", Status: models.StatusSent},
			&models.ContactMessage{ID: id, Timestamp: at, Subject: "s", Message: "m", Status: models.StatusReceived},
			1000, 1000)
		require.NoError(t, err)
	}
}

func TestRetentionService_RunOnce(t *testing.T) {
	db := openTestDB(t)
	logs := repository.NewContactLogRepository(db)
	seedLogs(t, logs, 6)

	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	svc := NewRetentionService(logs, RetentionConfig{OperationalLogLimit: 4, DisplayLogLimit: 2}, nil, m)

	removed, err := svc.RunOnce(context.Background())

	require.NoError(t, err)
	assert.EqualValues(t, 2+4, removed)

	entries, total, err := logs.ListLog(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Equal(t, "msg_02", entries[0].ID)
	assert.Equal(t, "msg_05", entries[3].ID)

	messages, total, err := logs.ListMessages(context.Background(), models.ContactFilter{}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "msg_05", messages[0].ID)
	assert.Equal(t, "msg_04", messages[1].ID)

	// A second sweep has nothing left to do.
	removed, err = svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RetentionRuns.WithLabelValues(metrics.ResultSuccess)))
}

func TestRetentionService_RunOnceError(t *testing.T) {
	logs := new(mocks.MockContactLogRepository)
	logs.On("EnforceRetention", context.Background(), DefaultOperationalN, DefaultDisplayN).
		Return(int64(0), errors.New("database is locked"))

	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	svc := NewRetentionService(logs, RetentionConfig{}, nil, m)

	_, err := svc.RunOnce(context.Background())

	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetentionRuns.WithLabelValues(metrics.ResultFailure)))
	logs.AssertExpectations(t)
}

func TestRetentionService_StartStop(t *testing.T) {
	logs := new(mocks.MockContactLogRepository)
	svc := NewRetentionService(logs, RetentionConfig{}, nil, nil)

	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())
	assert.Error(t, svc.Start(), "starting twice must fail")

	svc.Stop()
	assert.False(t, svc.IsRunning())

	// Stop is idempotent
	svc.Stop()
}

func TestRetentionService_InvalidSchedule(t *testing.T) {
	svc := NewRetentionService(new(mocks.MockContactLogRepository), RetentionConfig{Schedule: "every now and then"}, nil, nil)

	err := svc.Start()

	require.Error(t, err)
	assert.False(t, svc.IsRunning())
}

func TestNewRetentionService_Defaults(t *testing.T) {
	svc := NewRetentionService(new(mocks.MockContactLogRepository), RetentionConfig{}, nil, nil)

	assert.Equal(t, DefaultRetentionSchedule, svc.config.Schedule)
	assert.Equal(t, DefaultOperationalN, svc.config.OperationalLogLimit)
	assert.Equal(t, DefaultDisplayN, svc.config.DisplayLogLimit)
	assert.Equal(t, time.Minute, svc.config.Timeout)
}
