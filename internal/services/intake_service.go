package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/exposingwithjay/cybersentinel-backend/internal/errors"
	"github.com/exposingwithjay/cybersentinel-backend/internal/logger"
	"github.com/exposingwithjay/cybersentinel-backend/internal/mailer"
	"github.com/exposingwithjay/cybersentinel-backend/internal/metrics"
	"github.com/exposingwithjay/cybersentinel-backend/internal/models"
	"github.com/exposingwithjay/cybersentinel-backend/internal/repository"
	"github.com/exposingwithjay/cybersentinel-backend/internal/validator"
	"github.com/google/uuid"
)

// Field limits applied during sanitization
const (
	MaxNameLength       = 255
	MaxSubjectLength    = 255
	MaxMessageLength    = 10000
	MaxClientIDLength   = 64
	LogPreviewLength    = 200
	DefaultCooldown     = 60 * time.Second
	DefaultOperationalN = 1000
	DefaultDisplayN     = 500
)

// Result messages returned to the contact form
const (
	MessageAccepted       = "Message sent successfully! We will respond within 24-48 hours."
	MessageAutoReplySent  = " A confirmation email has been sent to your email address."
	MessageDeliveryFailed = "Failed to send message. Please check your server email configuration or try again later."
)

// Outcome is the result of an accepted submission
type Outcome struct {
	ID            string `json:"id"`
	AutoReplySent bool   `json:"auto_reply_sent"`
	Message       string `json:"message"`
}

// Notifier receives accepted submissions for the live feed
type Notifier interface {
	PublishSubmission(msg *models.ContactMessage)
}

// IntakeConfig holds configuration for the intake service
type IntakeConfig struct {
	// Cooldown is the minimum time between two accepted submissions of one client
	Cooldown time.Duration
	// OperationalLogLimit and DisplayLogLimit bound the two logs
	OperationalLogLimit int
	DisplayLogLimit     int
	// ReleaseOnFailure restores the previous cooldown entry when the
	// primary notification could not be sent
	ReleaseOnFailure bool
	// MailTimeout bounds each outbound delivery
	MailTimeout time.Duration
}

// IntakeOptions carries the optional collaborators of the intake service
type IntakeOptions struct {
	Logger   *slog.Logger
	Security *logger.SecurityLogger
	Metrics  *metrics.Metrics
	Notifier Notifier
	// NewID generates log identifiers; defaults to "msg_" + UUID
	NewID func() string
}

// IntakeService defines the contact submission pipeline
type IntakeService interface {
	// Submit validates, throttles, delivers and logs one submission
	Submit(ctx context.Context, sub *models.Submission, clientID string, now time.Time) (*Outcome, error)
}

// intakeService implements IntakeService
type intakeService struct {
	rateLimits repository.RateLimitRepository
	logs       repository.ContactLogRepository
	composer   *mailer.Composer
	sender     mailer.Sender
	config     IntakeConfig
	logger     *slog.Logger
	security   *logger.SecurityLogger
	metrics    *metrics.Metrics
	notifier   Notifier
	newID      func() string
}

// NewIntakeService creates a new IntakeService instance
func NewIntakeService(
	rateLimits repository.RateLimitRepository,
	logs repository.ContactLogRepository,
	composer *mailer.Composer,
	sender mailer.Sender,
	config IntakeConfig,
	opts IntakeOptions,
) IntakeService {
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultCooldown
	}
	if config.OperationalLogLimit <= 0 {
		config.OperationalLogLimit = DefaultOperationalN
	}
	if config.DisplayLogLimit <= 0 {
		config.DisplayLogLimit = DefaultDisplayN
	}

	s := &intakeService{
		rateLimits: rateLimits,
		logs:       logs,
		composer:   composer,
		sender:     sender,
		config:     config,
		logger:     opts.Logger,
		security:   opts.Security,
		metrics:    opts.Metrics,
		notifier:   opts.Notifier,
		newID:      opts.NewID,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.security == nil {
		s.security = logger.NewSecurityLogger(s.logger)
	}
	if s.newID == nil {
		s.newID = newSubmissionID
	}
	return s
}

func newSubmissionID() string {
	return "msg_" + uuid.NewString()
}

// Submit runs the intake pipeline. Every step is a gate: nothing is written
// before validation passes, and nothing is mailed before the cooldown entry
// has been claimed.
func (s *intakeService) Submit(ctx context.Context, sub *models.Submission, clientID string, now time.Time) (*Outcome, error) {
	if sub == nil {
		s.metrics.ObserveSubmission(metrics.OutcomeInvalidRequest)
		return nil, apperrors.ErrInvalidRequest
	}

	report, err := s.prepare(sub, clientID, now)
	if err != nil {
		s.metrics.ObserveSubmission(metrics.OutcomeInvalidInput)
		return nil, err
	}

	lease, err := s.rateLimits.TryAcquire(ctx, clientID, now, s.config.Cooldown)
	if err != nil {
		var cooldownErr *repository.CooldownError
		if errors.As(err, &cooldownErr) {
			retryAfter := s.config.Cooldown - now.Sub(cooldownErr.LastSubmittedAt)
			if retryAfter < 0 {
				retryAfter = 0
			}
			s.security.CooldownViolation(clientID, retryAfter)
			s.metrics.ObserveSubmission(metrics.OutcomeRateLimited)
			return nil, &apperrors.RateLimitError{RetryAfter: retryAfter}
		}
		return nil, fmt.Errorf("failed to check cooldown: %w", err)
	}

	primary, err := s.composer.Primary(report)
	if err != nil {
		s.releaseLease(lease)
		return nil, fmt.Errorf("failed to compose notification: %w", err)
	}

	primaryErr := s.deliver(ctx, primary)

	// The acknowledgment goes to every named submitter with a valid address,
	// whether or not the notification left.
	autoReplySent := false
	if !report.Anonymous {
		autoReplySent = s.sendAutoReply(ctx, report)
	}

	if primaryErr != nil {
		s.logger.Error("primary notification failed",
			slog.String("id", report.ID),
			slog.String("transport", s.sender.Name()),
			slog.String("ip", clientID),
			slog.Bool("auto_reply_sent", autoReplySent),
			slog.Any("error", primaryErr))
		s.metrics.ObserveSubmission(metrics.OutcomeDeliveryFailed)
		s.releaseLease(lease)
		return nil, &apperrors.DeliveryError{
			Err:  primaryErr,
			Hint: fmt.Sprintf("%s transport failed - check server mail settings", s.sender.Name()),
		}
	}

	entry, message := buildLogRecords(report, autoReplySent)
	if err := s.logs.AppendAccepted(ctx, entry, message, s.config.OperationalLogLimit, s.config.DisplayLogLimit); err != nil {
		// The notification already left; reporting failure would invite a resubmission.
		s.logger.Error("failed to append contact log",
			slog.String("id", report.ID),
			slog.Any("error", err))
		s.metrics.ObserveLogAppendError()
	} else if s.notifier != nil {
		s.notifier.PublishSubmission(message)
	}

	s.logger.Info("contact submission accepted",
		slog.String("id", report.ID),
		slog.String("ip", clientID),
		slog.Bool("urgent", report.Urgent),
		slog.Bool("anonymous", report.Anonymous),
		slog.Bool("auto_reply_sent", autoReplySent))
	s.metrics.ObserveSubmission(metrics.OutcomeAccepted)

	out := &Outcome{ID: report.ID, AutoReplySent: autoReplySent, Message: MessageAccepted}
	if autoReplySent {
		out.Message += MessageAutoReplySent
	}
	return out, nil
}

// prepare checks required fields, sanitizes and validates the submission
func (s *intakeService) prepare(sub *models.Submission, clientID string, now time.Time) (*mailer.Report, error) {
	required := []struct {
		field string
		value string
	}{
		{"name", sub.Name},
		{"email", sub.Email},
		{"subject", sub.Subject},
		{"message", sub.Message},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, apperrors.NewRequiredFieldError(r.field)
		}
	}

	var marked []string
	for _, r := range []struct {
		field string
		value string
	}{{"name", sub.Name}, {"subject", sub.Subject}, {"message", sub.Message}} {
		if validator.ContainsMarkup(r.value) {
			marked = append(marked, r.field)
		}
	}
	if len(marked) > 0 {
		s.security.MarkupStripped(clientID, marked)
	}

	report := &mailer.Report{
		Name:        validator.SanitizeLine(sub.Name, MaxNameLength),
		Email:       validator.NormalizeEmail(sub.Email),
		Subject:     validator.SanitizeLine(sub.Subject, MaxSubjectLength),
		Message:     validator.SanitizeText(sub.Message, MaxMessageLength),
		Urgent:      sub.Urgent.Bool(),
		Anonymous:   sub.Anonymous.Bool(),
		ClientIP:    validator.SanitizeLine(clientID, MaxClientIDLength),
		SubmittedAt: now,
	}

	// A field made only of markup is empty once stripped.
	for _, r := range []struct {
		field string
		value string
	}{{"name", report.Name}, {"subject", report.Subject}, {"message", report.Message}} {
		if r.value == "" {
			return nil, apperrors.NewRequiredFieldError(r.field)
		}
	}

	if err := validator.ValidateEmail(report.Email); err != nil {
		return nil, apperrors.NewInvalidEmailError()
	}

	report.ID = s.newID()
	return report, nil
}

// deliver hands one envelope to the transport, bounded by MailTimeout
func (s *intakeService) deliver(ctx context.Context, env *mailer.Envelope) error {
	if s.config.MailTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.MailTimeout)
		defer cancel()
	}

	start := time.Now()
	err := s.sender.Send(ctx, env)
	s.metrics.ObserveDelivery(env.Kind, s.sender.Name(), err, time.Since(start).Seconds())
	return err
}

// sendAutoReply sends the acknowledgment. Failures are logged and swallowed.
func (s *intakeService) sendAutoReply(ctx context.Context, report *mailer.Report) bool {
	env, err := s.composer.AutoReply(report)
	if err == nil {
		err = s.deliver(ctx, env)
	}
	if err != nil {
		s.logger.Warn("auto-reply failed",
			slog.String("id", report.ID),
			slog.String("transport", s.sender.Name()),
			slog.Any("error", err))
		return false
	}
	return true
}

// releaseLease restores the cooldown entry when configured to do so
func (s *intakeService) releaseLease(lease *repository.Lease) {
	if !s.config.ReleaseOnFailure || lease == nil {
		return
	}
	// The request context may already be cancelled by the failed send.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.rateLimits.Release(ctx, lease); err != nil {
		s.logger.Error("failed to release cooldown entry",
			slog.String("ip", lease.ClientID),
			slog.Any("error", err))
	}
}

// buildLogRecords derives the operational and display records of a report
func buildLogRecords(r *mailer.Report, autoReplySent bool) (*models.ContactLogEntry, *models.ContactMessage) {
	at := r.SubmittedAt.UTC()

	entry := &models.ContactLogEntry{
		ID:            r.ID,
		Timestamp:     at,
		Name:          r.DisplayName(),
		Email:         r.DisplayEmail(),
		Subject:       r.Subject,
		Message:       validator.Truncate(r.Message, LogPreviewLength),
		Urgent:        r.Urgent,
		Anonymous:     r.Anonymous,
		IP:            r.ClientIP,
		Status:        models.StatusSent,
		AutoReplySent: autoReplySent,
	}

	message := &models.ContactMessage{
		ID:        r.ID,
		Name:      r.DisplayName(),
		Email:     r.DisplayEmail(),
		Subject:   r.Subject,
		Message:   r.Message,
		Timestamp: at,
		Urgent:    r.Urgent,
		Anonymous: r.Anonymous,
		Status:    models.StatusReceived,
	}

	return entry, message
}
