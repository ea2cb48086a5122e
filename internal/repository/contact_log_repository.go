package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/exposingwithjay/cybersentinel-backend/internal/models"
	"gorm.io/gorm"
)

// ContactLogRepository defines the interface for the operational and display logs
type ContactLogRepository interface {
	AppendAccepted(ctx context.Context, entry *models.ContactLogEntry, message *models.ContactMessage, operationalLimit, displayLimit int) error
	EnforceRetention(ctx context.Context, operationalLimit, displayLimit int) (int64, error)
	ListMessages(ctx context.Context, filter models.ContactFilter, limit, offset int) ([]models.ContactMessage, int64, error)
	GetMessage(ctx context.Context, id string) (*models.ContactMessage, error)
	ListLog(ctx context.Context, limit, offset int) ([]models.ContactLogEntry, int64, error)
	Stats(ctx context.Context) (*models.ContactStats, error)
}

// contactLogRepository implements ContactLogRepository using GORM
type contactLogRepository struct {
	db *gorm.DB
}

// NewContactLogRepository creates a new ContactLogRepository instance
func NewContactLogRepository(db *gorm.DB) ContactLogRepository {
	return &contactLogRepository{db: db}
}

// AppendAccepted writes one accepted submission to both logs and trims each
// log to its bound, all in one transaction.
func (r *contactLogRepository) AppendAccepted(ctx context.Context, entry *models.ContactLogEntry, message *models.ContactMessage, operationalLimit, displayLimit int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			if isDuplicateKeyError(err) {
				return ErrDuplicateEntry
			}
			return fmt.Errorf("failed to append operational log entry: %w", err)
		}
		if err := tx.Create(message).Error; err != nil {
			if isDuplicateKeyError(err) {
				return ErrDuplicateEntry
			}
			return fmt.Errorf("failed to append display log entry: %w", err)
		}
		_, err := trimLogs(tx, operationalLimit, displayLimit)
		return err
	})
}

// EnforceRetention trims both logs to their bounds and returns the number
// of rows removed.
func (r *contactLogRepository) EnforceRetention(ctx context.Context, operationalLimit, displayLimit int) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := trimLogs(tx, operationalLimit, displayLimit)
		removed = n
		return err
	})
	return removed, err
}

// trimLogs keeps the newest rows of each log by seq
func trimLogs(tx *gorm.DB, operationalLimit, displayLimit int) (int64, error) {
	var removed int64
	for _, t := range []struct {
		table string
		limit int
	}{
		{models.ContactLogEntry{}.TableName(), operationalLimit},
		{models.ContactMessage{}.TableName(), displayLimit},
	} {
		if t.limit <= 0 {
			continue
		}
		// The subquery yields NULL while the log is within its bound,
		// and seq <= NULL matches nothing.
		query := fmt.Sprintf(
			"DELETE FROM %s WHERE seq <= (SELECT seq FROM %s ORDER BY seq DESC LIMIT 1 OFFSET ?)",
			t.table, t.table,
		)
		result := tx.Exec(query, t.limit)
		if result.Error != nil {
			return removed, fmt.Errorf("failed to trim %s: %w", t.table, result.Error)
		}
		removed += result.RowsAffected
	}
	return removed, nil
}

// ListMessages retrieves display log records, newest first
func (r *contactLogRepository) ListMessages(ctx context.Context, filter models.ContactFilter, limit, offset int) ([]models.ContactMessage, int64, error) {
	filtered := func(db *gorm.DB) *gorm.DB {
		if filter.UnreadOnly {
			db = db.Where("read = ?", false)
		}
		if filter.UrgentOnly {
			db = db.Where("urgent = ?", true)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.ContactMessage{}).Scopes(filtered).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	var messages []models.ContactMessage
	if err := r.db.WithContext(ctx).Scopes(filtered).Order("seq DESC").Limit(limit).Offset(offset).Find(&messages).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, total, nil
}

// GetMessage retrieves one display log record by its log id
func (r *contactLogRepository) GetMessage(ctx context.Context, id string) (*models.ContactMessage, error) {
	var message models.ContactMessage
	result := r.db.WithContext(ctx).Where("id = ?", id).Take(&message)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message by ID: %w", result.Error)
	}
	return &message, nil
}

// ListLog retrieves operational log entries, oldest first
func (r *contactLogRepository) ListLog(ctx context.Context, limit, offset int) ([]models.ContactLogEntry, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.ContactLogEntry{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count log entries: %w", err)
	}

	var entries []models.ContactLogEntry
	if err := r.db.WithContext(ctx).Order("seq ASC").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list log entries: %w", err)
	}
	return entries, total, nil
}

// Stats counts display log records for the dashboard
func (r *contactLogRepository) Stats(ctx context.Context) (*models.ContactStats, error) {
	stats := &models.ContactStats{}
	db := r.db.WithContext(ctx).Model(&models.ContactMessage{})

	if err := db.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	if err := db.Session(&gorm.Session{}).Where("read = ?", false).Count(&stats.Unread).Error; err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}
	if err := db.Session(&gorm.Session{}).Where("urgent = ?", true).Count(&stats.Urgent).Error; err != nil {
		return nil, fmt.Errorf("failed to count urgent messages: %w", err)
	}
	return stats, nil
}
