package scheduler

import (
	"testing"
	"time"
)

func TestNextOccurrence_Daily(t *testing.T) {
	anchor := time.Date(2026, 9, 1, 8, 30, 0, 0, time.Local)
	job := Job{FireAt: anchor, Recurrence: RecurrenceDaily}

	next, ok := NextOccurrence(job, anchor)
	if !ok {
		t.Fatal("daily job must have a next occurrence")
	}
	if !next.After(anchor) {
		t.Errorf("next occurrence must be strictly after the firing time: %v", next)
	}
	if next.Hour() != 8 || next.Minute() != 30 {
		t.Errorf("daily anchor time-of-day must be preserved, got %v", next)
	}
	if want := anchor.AddDate(0, 0, 1); !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestNextOccurrence_Weekly(t *testing.T) {
	// 2026-09-01 is a Tuesday.
	anchor := time.Date(2026, 9, 1, 19, 0, 0, 0, time.Local)
	job := Job{FireAt: anchor, Recurrence: RecurrenceWeekly}

	next, ok := NextOccurrence(job, anchor)
	if !ok {
		t.Fatal("weekly job must have a next occurrence")
	}
	if next.Weekday() != time.Tuesday {
		t.Errorf("weekly anchor weekday must be preserved, got %v", next.Weekday())
	}
	if want := anchor.AddDate(0, 0, 7); !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestNextOccurrence_StrictlyFutureFromLateFiring(t *testing.T) {
	anchor := time.Date(2026, 9, 1, 8, 30, 0, 0, time.Local)
	job := Job{FireAt: anchor, Recurrence: RecurrenceDaily}

	// Firing 3 days late still lands on the next valid future slot.
	late := anchor.AddDate(0, 0, 3).Add(2 * time.Hour)
	next, ok := NextOccurrence(job, late)
	if !ok {
		t.Fatal("expected a next occurrence")
	}
	if !next.After(late) {
		t.Errorf("next occurrence %v is not after firing time %v", next, late)
	}
	if next.Hour() != 8 || next.Minute() != 30 {
		t.Errorf("anchor time-of-day lost: %v", next)
	}
}

func TestNextOccurrence_OneOff(t *testing.T) {
	job := Job{FireAt: time.Now(), Recurrence: RecurrenceNone}
	if _, ok := NextOccurrence(job, time.Now()); ok {
		t.Error("one-off jobs must not produce a next occurrence")
	}
}

func TestNextAnchored_PastAnchor(t *testing.T) {
	anchor := time.Date(2026, 9, 1, 7, 0, 0, 0, time.Local)
	now := time.Date(2026, 9, 1, 15, 12, 0, 0, time.Local)

	next, ok := NextAnchored(anchor, RecurrenceDaily, now)
	if !ok {
		t.Fatal("daily pattern must produce a next occurrence")
	}
	if want := time.Date(2026, 9, 2, 7, 0, 0, 0, time.Local); !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}

	if _, ok := NextAnchored(anchor, RecurrenceNone, now); ok {
		t.Error("non-recurring pattern must not produce an occurrence")
	}
}

func TestParseRecurrence(t *testing.T) {
	cases := map[string]Recurrence{
		"daily":     RecurrenceDaily,
		" Weekly ":  RecurrenceWeekly,
		"none":      RecurrenceNone,
		"":          RecurrenceNone,
		"fortnight": RecurrenceNone,
	}
	for in, want := range cases {
		if got := ParseRecurrence(in); got != want {
			t.Errorf("ParseRecurrence(%q) = %s, want %s", in, got, want)
		}
	}
}
