package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common repository errors
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrCooldownActive = errors.New("cooldown active")
)

// CooldownError is returned by TryAcquire when the client's previous
// accepted submission is still inside the cooldown window.
type CooldownError struct {
	LastSubmittedAt time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active since %s", e.LastSubmittedAt.Format(time.RFC3339))
}

func (e *CooldownError) Unwrap() error {
	return ErrCooldownActive
}

// isDuplicateKeyError checks if the error is a duplicate key violation
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "23505") // PostgreSQL unique violation code
}
