package models

import "time"

// RateLimitEntry records the most recent accepted submission of one client.
// LastSubmittedAt is stored as Unix milliseconds so the cooldown comparison
// is a plain integer comparison on every dialect.
type RateLimitEntry struct {
	ClientID        string    `gorm:"primaryKey;size:64" json:"client_id"`
	LastSubmittedAt int64     `gorm:"not null" json:"last_submitted_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for RateLimitEntry
func (RateLimitEntry) TableName() string {
	return "rate_limit_entries"
}

// LastSubmitted returns LastSubmittedAt as a time.Time
func (e *RateLimitEntry) LastSubmitted() time.Time {
	return time.UnixMilli(e.LastSubmittedAt).UTC()
}
