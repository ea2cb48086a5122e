package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/exposingwithjay/cybersentinel-backend/internal/metrics"
	"github.com/exposingwithjay/cybersentinel-backend/internal/repository"
	"github.com/robfig/cron/v3"
)

// DefaultRetentionSchedule runs the sweep hourly
const DefaultRetentionSchedule = "@every 1h"

// RetentionConfig holds configuration for the retention sweep
type RetentionConfig struct {
	// Schedule is a cron spec or descriptor such as "@every 1h"
	Schedule            string
	OperationalLogLimit int
	DisplayLogLimit     int
	// Timeout bounds one sweep
	Timeout time.Duration
}

// RetentionService periodically trims both contact logs to their bounds
type RetentionService struct {
	logs    repository.ContactLogRepository
	config  RetentionConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	cron    *cron.Cron
	running bool
	mu      sync.Mutex
}

// NewRetentionService creates a new retention service
func NewRetentionService(
	logs repository.ContactLogRepository,
	config RetentionConfig,
	logger *slog.Logger,
	m *metrics.Metrics,
) *RetentionService {
	// Set defaults
	if config.Schedule == "" {
		config.Schedule = DefaultRetentionSchedule
	}
	if config.OperationalLogLimit <= 0 {
		config.OperationalLogLimit = DefaultOperationalN
	}
	if config.DisplayLogLimit <= 0 {
		config.DisplayLogLimit = DefaultDisplayN
	}
	if config.Timeout <= 0 {
		config.Timeout = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RetentionService{
		logs:    logs,
		config:  config,
		logger:  logger,
		metrics: m,
	}
}

// Start schedules the sweep
func (s *RetentionService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("retention service is already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.config.Schedule, s.sweep); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", s.config.Schedule, err)
	}
	c.Start()

	s.cron = c
	s.running = true

	s.logger.Info("retention service started",
		slog.String("schedule", s.config.Schedule),
		slog.Int("operational_limit", s.config.OperationalLogLimit),
		slog.Int("display_limit", s.config.DisplayLogLimit))
	return nil
}

// Stop stops the schedule and waits for a running sweep to finish
func (s *RetentionService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	c := s.cron
	s.mu.Unlock()

	<-c.Stop().Done()
	s.logger.Info("retention service stopped")
}

// IsRunning returns whether the sweep is scheduled
func (s *RetentionService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunOnce trims both logs immediately and returns the number of rows removed
func (s *RetentionService) RunOnce(ctx context.Context) (int64, error) {
	removed, err := s.logs.EnforceRetention(ctx, s.config.OperationalLogLimit, s.config.DisplayLogLimit)
	s.metrics.ObserveRetention(err)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("trimmed contact logs", slog.Int64("removed", removed))
	}
	return removed, nil
}

func (s *RetentionService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("retention sweep failed", slog.Any("error", err))
	}
}
