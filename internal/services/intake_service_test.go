package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/exposingwithjay/cybersentinel-backend/internal/database"
	apperrors "github.com/exposingwithjay/cybersentinel-backend/internal/errors"
	"github.com/exposingwithjay/cybersentinel-backend/internal/mailer"
	"github.com/exposingwithjay/cybersentinel-backend/internal/metrics"
	"github.com/exposingwithjay/cybersentinel-backend/internal/mocks"
	"github.com/exposingwithjay/cybersentinel-backend/internal/models"
	"github.com/exposingwithjay/cybersentinel-backend/internal/repository"
	"github.com/jhillyerd/enmime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

const (
	testOps     = "support@exposingwithjay.example"
	testNoReply = "noreply@exposingwithjay.example"
	testIP      = "198.51.100.7"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect("sqlite://"+filepath.Join(t.TempDir(), "intake.db"), false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })
	return db
}

func isKind(kind string) interface{} {
	return mock.MatchedBy(func(env *mailer.Envelope) bool { return env.Kind == kind })
}

func validSubmission() *models.Submission {
	return &models.Submission{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Subject: "Suspicious profile",
		Message: "I found an account that needs review.",
	}
}

// IntakeServiceTestSuite exercises the intake pipeline against SQLite stores
type IntakeServiceTestSuite struct {
	suite.Suite
	db         *gorm.DB
	rateLimits repository.RateLimitRepository
	logs       repository.ContactLogRepository
	sender     *mocks.MockSender
	notifier   *mocks.MockNotifier
	metrics    *metrics.Metrics
	service    IntakeService
	ctx        context.Context
	now        time.Time
}

func (s *IntakeServiceTestSuite) SetupTest() {
	s.db = openTestDB(s.T())
	s.rateLimits = repository.NewRateLimitRepository(s.db)
	s.logs = repository.NewContactLogRepository(s.db)
	s.sender = mocks.NewMockSender()
	s.notifier = mocks.NewMockNotifier()
	s.metrics = metrics.NewMetricsWith(prometheus.NewRegistry())
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	s.service = s.newService(IntakeConfig{})
}

func (s *IntakeServiceTestSuite) newService(cfg IntakeConfig) IntakeService {
	return NewIntakeService(s.rateLimits, s.logs, mailer.NewComposer(testOps, testNoReply), s.sender, cfg, IntakeOptions{
		Metrics:  s.metrics,
		Notifier: s.notifier,
	})
}

func TestIntakeServiceTestSuite(t *testing.T) {
	suite.Run(t, new(IntakeServiceTestSuite))
}

func (s *IntakeServiceTestSuite) logCounts() (int64, int64) {
	var ops, display int64
	s.Require().NoError(s.db.Model(&models.ContactLogEntry{}).Count(&ops).Error)
	s.Require().NoError(s.db.Model(&models.ContactMessage{}).Count(&display).Error)
	return ops, display
}

func (s *IntakeServiceTestSuite) assertNoSideEffects() {
	s.Empty(s.sender.Envelopes)
	ops, display := s.logCounts()
	s.Zero(ops)
	s.Zero(display)
	_, err := s.rateLimits.Get(s.ctx, testIP)
	s.ErrorIs(err, repository.ErrNotFound)
}

// ==================== Validation ====================

func (s *IntakeServiceTestSuite) TestSubmit_NilSubmission() {
	out, err := s.service.Submit(s.ctx, nil, testIP, s.now)

	s.Nil(out)
	s.ErrorIs(err, apperrors.ErrInvalidRequest)
	s.assertNoSideEffects()
}

func (s *IntakeServiceTestSuite) TestSubmit_MissingFields() {
	tests := []struct {
		field  string
		mutate func(*models.Submission)
	}{
		{"name", func(sub *models.Submission) { sub.Name = "" }},
		{"email", func(sub *models.Submission) { sub.Email = "   " }},
		{"subject", func(sub *models.Submission) { sub.Subject = "" }},
		{"message", func(sub *models.Submission) { sub.Message = "\n\t" }},
	}

	for _, tt := range tests {
		s.Run(tt.field, func() {
			sub := validSubmission()
			tt.mutate(sub)

			out, err := s.service.Submit(s.ctx, sub, testIP, s.now)

			s.Nil(out)
			vErr := apperrors.GetValidationError(err)
			s.Require().NotNil(vErr)
			s.Equal(tt.field, vErr.Field)
			s.Equal("Field '"+tt.field+"' is required", err.Error())
			s.assertNoSideEffects()
		})
	}
}

func (s *IntakeServiceTestSuite) TestSubmit_FirstMissingFieldReported() {
	sub := &models.Submission{Email: "jane@example.com"}

	_, err := s.service.Submit(s.ctx, sub, testIP, s.now)

	vErr := apperrors.GetValidationError(err)
	s.Require().NotNil(vErr)
	s.Equal("name", vErr.Field)
}

func (s *IntakeServiceTestSuite) TestSubmit_InvalidEmail() {
	for _, email := range []string{"not-an-email", "jane@localhost", "jane@@example.com", "@example.com"} {
		s.Run(email, func() {
			sub := validSubmission()
			sub.Email = email

			_, err := s.service.Submit(s.ctx, sub, testIP, s.now)

			s.True(apperrors.IsInvalidInput(err))
			s.Equal("Invalid email address", err.Error())
			s.assertNoSideEffects()
		})
	}
}

func (s *IntakeServiceTestSuite) TestSubmit_MarkupOnlyFieldRejected() {
	sub := validSubmission()
	sub.Name = "<script></script>"

	_, err := s.service.Submit(s.ctx, sub, testIP, s.now)

	vErr := apperrors.GetValidationError(err)
	s.Require().NotNil(vErr)
	s.Equal("name", vErr.Field)
	s.assertNoSideEffects()
}

// ==================== Accepted ====================

func (s *IntakeServiceTestSuite) TestSubmit_Success() {
	s.sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	sub := validSubmission()
	sub.Message = strings.Repeat("x", 450)

	out, err := s.service.Submit(s.ctx, sub, testIP, s.now)

	s.Require().NoError(err)
	s.True(strings.HasPrefix(out.ID, "msg_"))
	s.True(out.AutoReplySent)
	s.Equal(MessageAccepted+MessageAutoReplySent, out.Message)

	s.Len(s.sender.Sent(mailer.KindPrimary), 1)
	s.Len(s.sender.Sent(mailer.KindAutoReply), 1)
	s.Equal([]string{testOps}, s.sender.Sent(mailer.KindPrimary)[0].To)
	s.Equal([]string{"jane@example.com"}, s.sender.Sent(mailer.KindAutoReply)[0].To)

	ops, display := s.logCounts()
	s.EqualValues(1, ops)
	s.EqualValues(1, display)

	entries, _, err := s.logs.ListLog(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Equal(out.ID, entries[0].ID)
	s.LessOrEqual(len([]rune(entries[0].Message)), LogPreviewLength)
	s.True(strings.HasSuffix(entries[0].Message, "..."))
	s.Equal(models.StatusSent, entries[0].Status)
	s.True(entries[0].AutoReplySent)
	s.False(entries[0].Read)
	s.Equal(testIP, entries[0].IP)

	msg, err := s.logs.GetMessage(s.ctx, out.ID)
	s.Require().NoError(err)
	s.Equal(sub.Message, msg.Message)
	s.Equal(models.StatusReceived, msg.Status)
	s.Equal("Jane Doe", msg.Name)

	entry, err := s.rateLimits.Get(s.ctx, testIP)
	s.Require().NoError(err)
	s.Equal(s.now.UnixMilli(), entry.LastSubmittedAt)

	s.Equal(1, s.notifier.Count())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Submissions.WithLabelValues(metrics.OutcomeAccepted)))
}

func (s *IntakeServiceTestSuite) TestSubmit_SanitizesAndNormalizes() {
	s.sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	sub := validSubmission()
	sub.Name = "<b>Jane</b>\r\nDoe"
	sub.Email = "  Jane@EXAMPLE.com "
	sub.Subject = "Hello<script>alert(1)</script>"

	out, err := s.service.Submit(s.ctx, sub, testIP, s.now)
	s.Require().NoError(err)

	msg, err := s.logs.GetMessage(s.ctx, out.ID)
	s.Require().NoError(err)
	s.Equal("Jane  Doe", msg.Name)
	s.Equal("Jane@example.com", msg.Email)
	s.Equal("Hello", msg.Subject)
	s.Equal([]string{"Jane@example.com"}, s.sender.Sent(mailer.KindAutoReply)[0].To)
}

func (s *IntakeServiceTestSuite) TestSubmit_Anonymous() {
	s.sender.On("Send", mock.Anything, isKind(mailer.KindPrimary)).Return(nil)
	sub := validSubmission()
	sub.Anonymous = true

	out, err := s.service.Submit(s.ctx, sub, testIP, s.now)

	s.Require().NoError(err)
	s.False(out.AutoReplySent)
	s.Equal(MessageAccepted, out.Message)
	s.Empty(s.sender.Sent(mailer.KindAutoReply))

	primary := s.sender.Sent(mailer.KindPrimary)[0]
	s.NotContains(string(primary.Raw), "jane@example.com")
	s.Contains(string(primary.Raw), models.AnonymousName)

	entries, _, err := s.logs.ListLog(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Equal(models.AnonymousName, entries[0].Name)
	s.Equal(models.AnonymousEmail, entries[0].Email)
	s.True(entries[0].Anonymous)

	msg, err := s.logs.GetMessage(s.ctx, out.ID)
	s.Require().NoError(err)
	s.Equal(models.AnonymousName, msg.Name)
	s.Equal(models.AnonymousEmail, msg.Email)
}

func (s *IntakeServiceTestSuite) TestSubmit_UrgentMarker() {
	s.sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	urgent := validSubmission()
	urgent.Urgent = true
	_, err := s.service.Submit(s.ctx, urgent, testIP, s.now)
	s.Require().NoError(err)

	normal := validSubmission()
	_, err = s.service.Submit(s.ctx, normal, "198.51.100.8", s.now)
	s.Require().NoError(err)

	primaries := s.sender.Sent(mailer.KindPrimary)
	s.Require().Len(primaries, 2)

	first, err := enmime.ReadEnvelope(strings.NewReader(string(primaries[0].Raw)))
	s.Require().NoError(err)
	s.Equal("[CyberSentinel] [URGENT] Suspicious profile", first.GetHeader("Subject"))
	s.Equal("1", first.GetHeader("X-Priority"))

	second, err := enmime.ReadEnvelope(strings.NewReader(string(primaries[1].Raw)))
	s.Require().NoError(err)
	s.Equal("[CyberSentinel] Suspicious profile", second.GetHeader("Subject"))
	s.Equal("3", second.GetHeader("X-Priority"))
}

// ==================== Cooldown ====================

func (s *IntakeServiceTestSuite) TestSubmit_CooldownRejectsWithinWindow() {
	s.sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	_, err := s.service.Submit(s.ctx, validSubmission(), testIP, s.now)
	s.Require().NoError(err)

	out, err := s.service.Submit(s.ctx, validSubmission(), testIP, s.now.Add(20*time.Second))

	s.Nil(out)
	s.True(apperrors.IsRateLimited(err))
	rlErr := apperrors.GetRateLimitError(err)
	s.Require().NotNil(rlErr)
	s.Equal(40*time.Second, rlErr.RetryAfter)
	s.Contains(err.Error(), "wait")

	s.Len(s.sender.Sent(mailer.KindPrimary), 1)
	ops, display := s.logCounts()
	s.EqualValues(1, ops)
	s.EqualValues(1, display)
}

func (s *IntakeServiceTestSuite) TestSubmit_CooldownElapsed() {
	s.sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	_, err := s.service.Submit(s.ctx, validSubmission(), testIP, s.now)
	s.Require().NoError(err)

	_, err = s.service.Submit(s.ctx, validSubmission(), testIP, s.now.Add(60*time.Second))
	s.Require().NoError(err)

	s.Len(s.sender.Sent(mailer.KindPrimary), 2)
}

func (s *IntakeServiceTestSuite) TestSubmit_CooldownIsPerClient() {
	s.sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	_, err := s.service.Submit(s.ctx, validSubmission(), testIP, s.now)
	s.Require().NoError(err)

	_, err = s.service.Submit(s.ctx, validSubmission(), "198.51.100.99", s.now.Add(time.Second))
	s.NoError(err)
}

// ==================== Delivery failures ====================

func (s *IntakeServiceTestSuite) TestSubmit_PrimaryFailure() {
	s.sender.On("Send", mock.Anything, isKind(mailer.KindPrimary)).Return(errors.New("connection refused"))
	s.sender.On("Send", mock.Anything, isKind(mailer.KindAutoReply)).Return(nil)

	out, err := s.service.Submit(s.ctx, validSubmission(), testIP, s.now)

	s.Nil(out)
	s.True(apperrors.IsDeliveryFailed(err))
	dErr := apperrors.GetDeliveryError(err)
	s.Require().NotNil(dErr)
	s.Contains(dErr.Hint, "mock")

	// The submitter is still acknowledged.
	s.Require().Len(s.sender.Sent(mailer.KindAutoReply), 1)
	s.Equal([]string{"jane@example.com"}, s.sender.Sent(mailer.KindAutoReply)[0].To)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Deliveries.WithLabelValues(mailer.KindAutoReply, "mock", metrics.ResultSuccess)))
	ops, display := s.logCounts()
	s.Zero(ops)
	s.Zero(display)
	s.Zero(s.notifier.Count())

	// The cooldown entry stays claimed by default.
	entry, err := s.rateLimits.Get(s.ctx, testIP)
	s.Require().NoError(err)
	s.Equal(s.now.UnixMilli(), entry.LastSubmittedAt)
}

func (s *IntakeServiceTestSuite) TestSubmit_PrimaryFailureReleasesCooldown() {
	s.service = s.newService(IntakeConfig{ReleaseOnFailure: true})
	s.sender.On("Send", mock.Anything, isKind(mailer.KindPrimary)).Return(errors.New("connection refused")).Once()
	s.sender.On("Send", mock.Anything, isKind(mailer.KindAutoReply)).Return(nil).Once()

	_, err := s.service.Submit(s.ctx, validSubmission(), testIP, s.now)
	s.True(apperrors.IsDeliveryFailed(err))

	_, err = s.rateLimits.Get(s.ctx, testIP)
	s.ErrorIs(err, repository.ErrNotFound)

	// The client may retry right away.
	s.sender.On("Send", mock.Anything, mock.Anything).Return(nil)
	_, err = s.service.Submit(s.ctx, validSubmission(), testIP, s.now.Add(time.Second))
	s.NoError(err)
}

func (s *IntakeServiceTestSuite) TestSubmit_PrimaryFailureAnonymousSkipsAutoReply() {
	s.sender.On("Send", mock.Anything, isKind(mailer.KindPrimary)).Return(errors.New("connection refused"))

	sub := validSubmission()
	sub.Anonymous = true
	_, err := s.service.Submit(s.ctx, sub, testIP, s.now)

	s.True(apperrors.IsDeliveryFailed(err))
	s.Len(s.sender.Sent(mailer.KindPrimary), 1)
	s.Empty(s.sender.Sent(mailer.KindAutoReply))
}

func (s *IntakeServiceTestSuite) TestSubmit_BothDeliveriesFail() {
	s.sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	out, err := s.service.Submit(s.ctx, validSubmission(), testIP, s.now)

	s.Nil(out)
	s.True(apperrors.IsDeliveryFailed(err))
	s.Len(s.sender.Envelopes, 2)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Deliveries.WithLabelValues(mailer.KindAutoReply, "mock", metrics.ResultFailure)))
}

func (s *IntakeServiceTestSuite) TestSubmit_AutoReplyFailureSwallowed() {
	s.sender.On("Send", mock.Anything, isKind(mailer.KindPrimary)).Return(nil)
	s.sender.On("Send", mock.Anything, isKind(mailer.KindAutoReply)).Return(errors.New("mailbox unavailable"))

	out, err := s.service.Submit(s.ctx, validSubmission(), testIP, s.now)

	s.Require().NoError(err)
	s.False(out.AutoReplySent)
	s.Equal(MessageAccepted, out.Message)

	entries, _, err := s.logs.ListLog(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.False(entries[0].AutoReplySent)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Deliveries.WithLabelValues(mailer.KindAutoReply, "mock", metrics.ResultFailure)))
}

// ==================== Log store failure ====================

func TestSubmit_LogAppendFailureStillAccepted(t *testing.T) {
	rateLimits := new(mocks.MockRateLimitRepository)
	logs := new(mocks.MockContactLogRepository)
	sender := mocks.NewMockSender()
	notifier := mocks.NewMockNotifier()
	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	rateLimits.On("TryAcquire", mock.Anything, testIP, now, DefaultCooldown).
		Return(&repository.Lease{ClientID: testIP, At: now}, nil)
	logs.On("AppendAccepted", mock.Anything, mock.Anything, mock.Anything, DefaultOperationalN, DefaultDisplayN).
		Return(errors.New("database is locked"))
	sender.On("Send", mock.Anything, mock.Anything).Return(nil)

	svc := NewIntakeService(rateLimits, logs, mailer.NewComposer(testOps, testNoReply), sender, IntakeConfig{}, IntakeOptions{
		Metrics:  m,
		Notifier: notifier,
		NewID:    func() string { return "msg_fixed" },
	})

	out, err := svc.Submit(context.Background(), validSubmission(), testIP, now)

	require.NoError(t, err)
	assert.Equal(t, "msg_fixed", out.ID)
	assert.True(t, out.AutoReplySent)
	assert.Zero(t, notifier.Count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LogAppendErrors))
	rateLimits.AssertExpectations(t)
	logs.AssertExpectations(t)
}

func TestSubmit_CooldownRepositoryError(t *testing.T) {
	rateLimits := new(mocks.MockRateLimitRepository)
	logs := new(mocks.MockContactLogRepository)
	sender := mocks.NewMockSender()

	rateLimits.On("TryAcquire", mock.Anything, testIP, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset"))

	svc := NewIntakeService(rateLimits, logs, mailer.NewComposer(testOps, testNoReply), sender, IntakeConfig{}, IntakeOptions{})

	_, err := svc.Submit(context.Background(), validSubmission(), testIP, time.Now())

	require.Error(t, err)
	assert.False(t, apperrors.IsRateLimited(err))
	assert.Equal(t, apperrors.CodeInternalError, apperrors.GetErrorCode(err))
	assert.Empty(t, sender.Envelopes)
	logs.AssertNotCalled(t, "AppendAccepted", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
