// Package reminder owns every pending reminder: validation, cancellation,
// recurrence re-arming and exactly-once due delivery. All state changes go
// through the store so a restart reloads whatever was pending.
package reminder

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidSchedule rejects reminders with a past fire time or an
	// unparseable recurrence. Nothing is stored in that case.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrNotFound is returned when cancelling an unknown or already
	// committed reminder.
	ErrNotFound = errors.New("reminder not found")
)

// Recurrence kinds.
const (
	None     = "none"
	Daily    = "daily"
	Weekly   = "weekly"
	Interval = "interval"
)

// Recurrence describes how a reminder re-arms after firing. Every is a Go
// duration string and only meaningful for Interval.
type Recurrence struct {
	Kind  string `json:"kind"`
	Every string `json:"every,omitempty"`
}

// Recurring reports whether the reminder re-arms after firing.
func (r Recurrence) Recurring() bool {
	switch r.Kind {
	case Daily, Weekly, Interval:
		return true
	}
	return false
}

// Period returns the re-arm interval.
func (r Recurrence) Period() (time.Duration, error) {
	switch r.Kind {
	case "", None:
		return 0, nil
	case Daily:
		return 24 * time.Hour, nil
	case Weekly:
		return 7 * 24 * time.Hour, nil
	case Interval:
		d, err := time.ParseDuration(r.Every)
		if err != nil || d <= 0 {
			return 0, fmt.Errorf("%w: bad interval %q", ErrInvalidSchedule, r.Every)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("%w: unknown recurrence %q", ErrInvalidSchedule, r.Kind)
	}
}

// Reminder is one scheduled notification. ID is the store record id and is
// filled in by the scheduler, not persisted inside the document.
type Reminder struct {
	ID         string     `json:"-"`
	Message    string     `json:"message"`
	FireAt     time.Time  `json:"fire_at"`
	CreatedAt  time.Time  `json:"created_at"`
	Recurrence Recurrence `json:"recurrence"`
	Fired      bool       `json:"fired"`
}
