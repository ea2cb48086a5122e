package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/exposingwithjay/cybersentinel-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Lease is the proof of a successful TryAcquire. It remembers the timestamp
// it replaced so the write can be undone with Release.
type Lease struct {
	ClientID string
	At       time.Time
	// Previous is nil when the client had no entry before.
	Previous *time.Time
}

// RateLimitRepository defines the interface for per-client cooldown data access
type RateLimitRepository interface {
	TryAcquire(ctx context.Context, clientID string, now time.Time, cooldown time.Duration) (*Lease, error)
	Release(ctx context.Context, lease *Lease) error
	Get(ctx context.Context, clientID string) (*models.RateLimitEntry, error)
}

// rateLimitRepository implements RateLimitRepository using GORM
type rateLimitRepository struct {
	db *gorm.DB
}

// NewRateLimitRepository creates a new RateLimitRepository instance
func NewRateLimitRepository(db *gorm.DB) RateLimitRepository {
	return &rateLimitRepository{db: db}
}

// TryAcquire records now as the client's latest submission, but only when
// the client has no entry or its entry is at least cooldown old. The check
// and the write are one conditional upsert, so two concurrent requests from
// the same client can never both succeed. A skipped write returns a
// *CooldownError carrying the stored timestamp.
func (r *rateLimitRepository) TryAcquire(ctx context.Context, clientID string, now time.Time, cooldown time.Duration) (*Lease, error) {
	nowMs := now.UnixMilli()
	threshold := nowMs - cooldown.Milliseconds()

	var lease *Lease
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var previous models.RateLimitEntry
		found := true
		if err := tx.Where("client_id = ?", clientID).Take(&previous).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to read rate limit entry: %w", err)
			}
			found = false
		}

		entry := models.RateLimitEntry{ClientID: clientID, LastSubmittedAt: nowMs}
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_submitted_at", "updated_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "rate_limit_entries.last_submitted_at <= ?", Vars: []interface{}{threshold}},
			}},
		}).Create(&entry)
		if result.Error != nil {
			return fmt.Errorf("failed to upsert rate limit entry: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			// Re-read: the row may have been written after our first read.
			var current models.RateLimitEntry
			if err := tx.Where("client_id = ?", clientID).Take(&current).Error; err != nil {
				return fmt.Errorf("failed to read rate limit entry: %w", err)
			}
			return &CooldownError{LastSubmittedAt: current.LastSubmitted()}
		}

		lease = &Lease{ClientID: clientID, At: time.UnixMilli(nowMs).UTC()}
		if found {
			prev := previous.LastSubmitted()
			lease.Previous = &prev
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lease, nil
}

// Release undoes a lease: the previous timestamp is restored (or the entry
// removed when there was none), provided nobody has written the entry since.
func (r *rateLimitRepository) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}

	db := r.db.WithContext(ctx).
		Where("client_id = ? AND last_submitted_at = ?", lease.ClientID, lease.At.UnixMilli())

	var result *gorm.DB
	if lease.Previous == nil {
		result = db.Delete(&models.RateLimitEntry{})
	} else {
		result = db.Model(&models.RateLimitEntry{}).
			Update("last_submitted_at", lease.Previous.UnixMilli())
	}
	if result.Error != nil {
		return fmt.Errorf("failed to release rate limit entry: %w", result.Error)
	}
	return nil
}

// Get retrieves the entry of one client
func (r *rateLimitRepository) Get(ctx context.Context, clientID string) (*models.RateLimitEntry, error) {
	var entry models.RateLimitEntry
	result := r.db.WithContext(ctx).Where("client_id = ?", clientID).Take(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get rate limit entry: %w", result.Error)
	}
	return &entry, nil
}
