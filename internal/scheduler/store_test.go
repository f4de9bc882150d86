package scheduler

import (
	"path/filepath"
	"testing"
	"time"

	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
)

func mustJob(t *testing.T, recipient, message string, fireAt time.Time, rec Recurrence) Job {
	t.Helper()
	job, err := NewJob(recipient, message, fireAt, rec)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	return job
}

func TestStore_UpsertIsIdempotentByID(t *testing.T) {
	st, err := NewStore(filepath.Join(t.TempDir(), "jobs.json"))
	if err != nil {
		t.Fatal(err)
	}

	fireAt := time.Now().Add(time.Hour).Truncate(time.Second)
	first := mustJob(t, "977981", "buy milk", fireAt, RecurrenceNone)
	second := mustJob(t, "977981", "buy milk and eggs", fireAt, RecurrenceNone)

	if first.ID != second.ID {
		t.Fatalf("same (recipient, fire time) must derive the same id: %s vs %s", first.ID, second.ID)
	}

	if err := st.Upsert(first); err != nil {
		t.Fatal(err)
	}
	if err := st.Upsert(second); err != nil {
		t.Fatal(err)
	}

	all := st.All()
	if len(all) != 1 {
		t.Fatalf("expected 1 live job after duplicate upsert, got %d", len(all))
	}
	if all[0].Message != "buy milk and eggs" {
		t.Errorf("second upsert's fields must win, got message %q", all[0].Message)
	}
	if all[0].State != StatePending {
		t.Errorf("upsert must reset state to pending, got %s", all[0].State)
	}
}

func TestStore_UpsertResetsFiringJob(t *testing.T) {
	st, err := NewStore(filepath.Join(t.TempDir(), "jobs.json"))
	if err != nil {
		t.Fatal(err)
	}

	fireAt := time.Now().Add(-time.Minute)
	job := mustJob(t, "977981", "old text", fireAt, RecurrenceNone)
	if err := st.Upsert(job); err != nil {
		t.Fatal(err)
	}
	if _, err := st.MarkFiring(job.ID); err != nil {
		t.Fatal(err)
	}

	replacement := mustJob(t, "977981", "new text", fireAt, RecurrenceNone)
	if err := st.Upsert(replacement); err != nil {
		t.Fatal(err)
	}

	// The in-flight occurrence lost the race; its terminal transition
	// must be rejected instead of clobbering the new definition.
	if err := st.MarkDelivered(job.ID); !sathiErrors.IsCategory(err, sathiErrors.ErrConflict) {
		t.Errorf("expected conflict for stale transition, got %v", err)
	}

	got, err := st.Get(job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Message != "new text" || got.State != StatePending {
		t.Errorf("replacement definition must survive: %+v", got)
	}
}

func TestStore_MarkFiringIsExclusive(t *testing.T) {
	st, err := NewStore(filepath.Join(t.TempDir(), "jobs.json"))
	if err != nil {
		t.Fatal(err)
	}

	job := mustJob(t, "977981", "standup", time.Now().Add(-time.Second), RecurrenceNone)
	if err := st.Upsert(job); err != nil {
		t.Fatal(err)
	}

	if _, err := st.MarkFiring(job.ID); err != nil {
		t.Fatalf("first mark firing should succeed: %v", err)
	}
	if _, err := st.MarkFiring(job.ID); !sathiErrors.IsCategory(err, sathiErrors.ErrConflict) {
		t.Errorf("second mark firing must conflict, got %v", err)
	}
}

func TestStore_DeliveredOneOffIsRemoved(t *testing.T) {
	st, err := NewStore(filepath.Join(t.TempDir(), "jobs.json"))
	if err != nil {
		t.Fatal(err)
	}

	job := mustJob(t, "977981", "water plants", time.Now(), RecurrenceNone)
	if err := st.Upsert(job); err != nil {
		t.Fatal(err)
	}
	if _, err := st.MarkFiring(job.ID); err != nil {
		t.Fatal(err)
	}
	if err := st.MarkDelivered(job.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := st.Get(job.ID); !sathiErrors.IsCategory(err, sathiErrors.ErrNotFound) {
		t.Errorf("delivered one-off must be gone, got %v", err)
	}
	if due := st.Due(time.Now().Add(24 * time.Hour)); len(due) != 0 {
		t.Errorf("delivered one-off must never fire again, due=%v", due)
	}
}

func TestStore_FailedOneOffIsTerminal(t *testing.T) {
	st, err := NewStore(filepath.Join(t.TempDir(), "jobs.json"))
	if err != nil {
		t.Fatal(err)
	}

	job := mustJob(t, "977981", "pay rent", time.Now(), RecurrenceNone)
	if err := st.Upsert(job); err != nil {
		t.Fatal(err)
	}
	if _, err := st.MarkFiring(job.ID); err != nil {
		t.Fatal(err)
	}
	if err := st.MarkFailed(job.ID); err != nil {
		t.Fatal(err)
	}

	got, err := st.Get(job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != StateFailed {
		t.Errorf("expected terminal failed state, got %s", got.State)
	}
	if due := st.Due(time.Now().Add(24 * time.Hour)); len(due) != 0 {
		t.Errorf("failed one-off must not be due again, due=%v", due)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")

	st, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	job := mustJob(t, "977981", "persisted", time.Now().Add(time.Hour), RecurrenceDaily)
	if err := st.Upsert(job); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reopened.Get(job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Message != "persisted" || got.Recurrence != RecurrenceDaily {
		t.Errorf("reloaded job does not match: %+v", got)
	}
}

func TestStore_RecoverFiring(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")

	st, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	job := mustJob(t, "977981", "crashed mid-send", time.Now().Add(-time.Minute), RecurrenceNone)
	if err := st.Upsert(job); err != nil {
		t.Fatal(err)
	}
	if _, err := st.MarkFiring(job.ID); err != nil {
		t.Fatal(err)
	}

	// Simulate a restart: reopen the file with the job stuck in firing.
	reopened, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	recovered, err := reopened.RecoverFiring()
	if err != nil {
		t.Fatal(err)
	}
	if recovered != 1 {
		t.Fatalf("expected 1 recovered job, got %d", recovered)
	}

	due := reopened.Due(time.Now())
	if len(due) != 1 || due[0].ID != job.ID {
		t.Fatalf("recovered job with past fire time must be due immediately, due=%v", due)
	}
}

func TestStore_DueFiltersPendingAndTime(t *testing.T) {
	st, err := NewStore(filepath.Join(t.TempDir(), "jobs.json"))
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	past := mustJob(t, "a", "past", now.Add(-time.Minute), RecurrenceNone)
	future := mustJob(t, "b", "future", now.Add(time.Hour), RecurrenceNone)
	for _, j := range []Job{past, future} {
		if err := st.Upsert(j); err != nil {
			t.Fatal(err)
		}
	}

	due := st.Due(now)
	if len(due) != 1 || due[0].ID != past.ID {
		t.Fatalf("only the past pending job should be due, got %v", due)
	}
}

func TestStore_Delete(t *testing.T) {
	st, err := NewStore(filepath.Join(t.TempDir(), "jobs.json"))
	if err != nil {
		t.Fatal(err)
	}

	job := mustJob(t, "977981", "cancel me", time.Now().Add(time.Hour), RecurrenceWeekly)
	if err := st.Upsert(job); err != nil {
		t.Fatal(err)
	}
	if err := st.Delete(job.ID); err != nil {
		t.Fatal(err)
	}
	if err := st.Delete(job.ID); !sathiErrors.IsCategory(err, sathiErrors.ErrNotFound) {
		t.Errorf("deleting a missing job must be not-found, got %v", err)
	}
}
