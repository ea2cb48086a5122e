package models

import (
	"time"
)

// Placeholders shown instead of the submitter's identity on anonymous reports
const (
	AnonymousName  = "[Anonymous]"
	AnonymousEmail = "[Hidden]"
)

// Log statuses
const (
	StatusSent     = "sent"
	StatusReceived = "received"
)

// ContactLogEntry is one row of the operational log. The message is a
// truncated preview; the log keeps the newest entries and reads oldest first.
type ContactLogEntry struct {
	Seq           uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	ID            string    `gorm:"uniqueIndex;not null;size:64" json:"id"`
	Timestamp     time.Time `gorm:"not null" json:"timestamp"`
	Name          string    `gorm:"size:255" json:"name"`
	Email         string    `gorm:"size:255" json:"email"`
	Subject       string    `gorm:"size:255" json:"subject"`
	Message       string    `gorm:"size:255" json:"message"`
	Urgent        bool      `gorm:"default:false" json:"urgent"`
	Anonymous     bool      `gorm:"default:false" json:"anonymous"`
	IP            string    `gorm:"size:64" json:"ip"`
	Status        string    `gorm:"size:32" json:"status"`
	AutoReplySent bool      `gorm:"default:false" json:"auto_reply_sent"`
	Read          bool      `gorm:"default:false" json:"read"`
}

// TableName returns the table name for ContactLogEntry
func (ContactLogEntry) TableName() string {
	return "contact_log"
}

// ContactMessage is one row of the display log read by the admin dashboard.
// It carries the full message and reads newest first.
type ContactMessage struct {
	Seq       uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	ID        string    `gorm:"uniqueIndex;not null;size:64" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	Subject   string    `gorm:"size:255" json:"subject"`
	Message   string    `gorm:"type:text" json:"message"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	Read      bool      `gorm:"default:false;index" json:"read"`
	Urgent    bool      `gorm:"default:false" json:"urgent"`
	Anonymous bool      `gorm:"default:false" json:"anonymous"`
	Status    string    `gorm:"size:32" json:"status"`
}

// TableName returns the table name for ContactMessage
func (ContactMessage) TableName() string {
	return "contact_messages"
}

// ContactFilter narrows display log queries
type ContactFilter struct {
	// UnreadOnly returns only messages not yet marked read
	UnreadOnly bool
	// UrgentOnly returns only urgent messages
	UrgentOnly bool
}

// ContactStats holds the counters shown on the admin dashboard
type ContactStats struct {
	Total  int64 `json:"total"`
	Unread int64 `json:"unread"`
	Urgent int64 `json:"urgent"`
}
