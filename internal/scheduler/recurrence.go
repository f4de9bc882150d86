package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronSpec renders a recurring job's anchor as a standard cron expression.
// Daily keeps the time-of-day, weekly additionally pins the weekday. The
// anchor's date component is discarded here, which keeps the expression
// stable across recomputations.
func cronSpec(anchor time.Time, recurrence Recurrence) (string, bool) {
	switch recurrence {
	case RecurrenceDaily:
		return fmt.Sprintf("%d %d * * *", anchor.Minute(), anchor.Hour()), true
	case RecurrenceWeekly:
		return fmt.Sprintf("%d %d * * %d", anchor.Minute(), anchor.Hour(), int(anchor.Weekday())), true
	default:
		return "", false
	}
}

// NextOccurrence computes the next fire time strictly after the given
// instant. Returns false for one-off jobs, which have no next occurrence.
func NextOccurrence(job Job, after time.Time) (time.Time, bool) {
	return NextAnchored(job.FireAt, job.Recurrence, after)
}

// NextAnchored computes the next occurrence of a recurring pattern
// strictly after the given instant. Returns false for Recurrence values
// that do not recur.
func NextAnchored(anchor time.Time, recurrence Recurrence, after time.Time) (time.Time, bool) {
	spec, ok := cronSpec(anchor, recurrence)
	if !ok {
		return time.Time{}, false
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		// Specs above are generated, not user input; this cannot
		// happen for a valid recurrence.
		return time.Time{}, false
	}

	return schedule.Next(after), true
}
