// Package store holds the per-tenant persistence operations. Every
// function takes the tenant's database handle explicitly; there is no
// process-wide database here because each slug owns its own file.
package store

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Sentinel errors mapped to HTTP statuses by the handlers.
var (
	ErrConflict       = errors.New("unique constraint conflict")
	ErrNotFound       = errors.New("record not found")
	ErrBadCredentials = errors.New("invalid credentials")
)

const busyAttempts = 3

// withBusyRetry retries a write a bounded number of times when SQLite
// rejects it under write contention. The DSN already carries a
// busy_timeout pragma; this covers the residual SQLITE_BUSY returns.
func withBusyRetry(op func() error) error {
	var err error
	for attempt := 0; attempt < busyAttempts; attempt++ {
		err = op()
		if err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func isConflict(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
