package scheduler

import (
	"fmt"
	"strings"
	"time"

	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
)

type JobState string

const (
	StatePending   JobState = "PENDING"
	StateFiring    JobState = "FIRING"
	StateDelivered JobState = "DELIVERED"
	StateFailed    JobState = "FAILED"
)

type Recurrence string

const (
	RecurrenceNone   Recurrence = "none"
	RecurrenceDaily  Recurrence = "daily"
	RecurrenceWeekly Recurrence = "weekly"
)

// ParseRecurrence normalizes a free-text recurrence tag. Anything outside
// the known set collapses to none.
func ParseRecurrence(tag string) Recurrence {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case string(RecurrenceDaily):
		return RecurrenceDaily
	case string(RecurrenceWeekly):
		return RecurrenceWeekly
	default:
		return RecurrenceNone
	}
}

// Job is a persisted reminder. FireAt is the next delivery time; for
// recurring jobs its time-of-day (and weekday, for weekly) is the anchor
// that survives recomputation.
type Job struct {
	ID         string     `json:"id"`
	Recipient  string     `json:"recipient"`
	Message    string     `json:"message"`
	FireAt     time.Time  `json:"fire_at"`
	Recurrence Recurrence `json:"recurrence"`
	State      JobState   `json:"state"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (j *Job) Recurring() bool {
	return j.Recurrence == RecurrenceDaily || j.Recurrence == RecurrenceWeekly
}

// JobID derives a deterministic id from recipient and first fire time, so
// re-extracting the same reminder upserts instead of duplicating.
func JobID(recipient string, fireAt time.Time) string {
	return fmt.Sprintf("reminder_%s_%d", recipient, fireAt.Unix())
}

// NewJob builds a pending job. Recipient and message are required.
func NewJob(recipient, message string, fireAt time.Time, recurrence Recurrence) (Job, error) {
	recipient = strings.TrimSpace(recipient)
	message = strings.TrimSpace(message)

	if recipient == "" {
		return Job{}, sathiErrors.Validation("reminder recipient is required")
	}
	if message == "" {
		return Job{}, sathiErrors.Validation("reminder message is required")
	}

	now := time.Now()
	return Job{
		ID:         JobID(recipient, fireAt),
		Recipient:  recipient,
		Message:    message,
		FireAt:     fireAt,
		Recurrence: recurrence,
		State:      StatePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
