package scheduler

import (
	"bytes"
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
)

type jobFile struct {
	Jobs map[string]*Job `json:"jobs"`
}

// Store is a durable job map backed by a single JSON file. Writes go
// through an atomic rename so a crash never leaves a torn file. All state
// transitions are serialized under one mutex, which is the store's
// atomicity contract: upsert and mark-firing for the same id never
// interleave.
type Store struct {
	path string
	mu   sync.RWMutex
	data jobFile
}

func NewStore(path string) (*Store, error) {
	s := &Store{
		path: path,
		data: jobFile{Jobs: make(map[string]*Job)},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(content) == 0 {
		return nil
	}
	if err := json.Unmarshal(content, &s.data); err != nil {
		return sathiErrors.Wrap(err, "corrupt job store")
	}
	if s.data.Jobs == nil {
		s.data.Jobs = make(map[string]*Job)
	}
	return nil
}

// save is called with s.mu held.
func (s *Store) save() error {
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(s.path, bytes.NewReader(b))
}

// Upsert inserts or replaces a job by id. Replacing always resets the job
// to pending, which cancels any in-flight evaluation of the old
// definition; the last upsert wins deterministically.
func (s *Store) Upsert(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.State = StatePending
	job.UpdatedAt = time.Now()
	if existing, ok := s.data.Jobs[job.ID]; ok {
		job.CreatedAt = existing.CreatedAt
	}

	s.data.Jobs[job.ID] = &job
	return s.save()
}

func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.data.Jobs[id]
	if !ok {
		return Job{}, sathiErrors.NotFound("job not found: " + id)
	}
	return *job, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Jobs[id]; !ok {
		return sathiErrors.NotFound("job not found: " + id)
	}
	delete(s.data.Jobs, id)
	return s.save()
}

// All returns copies of every stored job, ordered by fire time.
func (s *Store) All() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.data.Jobs))
	for _, job := range s.data.Jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].FireAt.Before(jobs[j].FireAt) })
	return jobs
}

// Due returns pending jobs whose fire time is at or before now.
func (s *Store) Due(now time.Time) []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []Job
	for _, job := range s.data.Jobs {
		if job.State == StatePending && !job.FireAt.After(now) {
			due = append(due, *job)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].FireAt.Before(due[j].FireAt) })
	return due
}

// MarkFiring transitions a pending job to firing. A job already firing
// yields ErrConflict, so two loop iterations can never deliver the same
// occurrence twice.
func (s *Store) MarkFiring(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.data.Jobs[id]
	if !ok {
		return Job{}, sathiErrors.NotFound("job not found: " + id)
	}
	if job.State == StateFiring {
		return Job{}, sathiErrors.Conflict("job already firing: " + id)
	}
	if job.State != StatePending {
		return Job{}, sathiErrors.Conflict("job not pending: " + id)
	}

	job.State = StateFiring
	job.UpdatedAt = time.Now()
	if err := s.save(); err != nil {
		return Job{}, err
	}
	return *job, nil
}

// MarkDelivered finishes a one-off occurrence. Delivered one-off jobs are
// removed outright so they can never fire again.
func (s *Store) MarkDelivered(id string) error {
	return s.finishFiring(id, func(job *Job) {
		job.State = StateDelivered
		delete(s.data.Jobs, id)
	})
}

// MarkFailed finishes a failed one-off occurrence. The job is retained in
// terminal failed state for inspection; the scheduler never retries it.
func (s *Store) MarkFailed(id string) error {
	return s.finishFiring(id, func(job *Job) {
		job.State = StateFailed
	})
}

// Reschedule returns a recurring job to pending at its next occurrence.
func (s *Store) Reschedule(id string, next time.Time) error {
	return s.finishFiring(id, func(job *Job) {
		job.FireAt = next
		job.State = StatePending
	})
}

// finishFiring applies a terminal transition, but only if the job is
// still firing. An upsert that raced in between reset the job to pending
// with a new definition, and the stale transition loses with ErrConflict.
func (s *Store) finishFiring(id string, apply func(job *Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.data.Jobs[id]
	if !ok {
		return sathiErrors.NotFound("job not found: " + id)
	}
	if job.State != StateFiring {
		return sathiErrors.Conflict("job no longer firing: " + id)
	}

	job.UpdatedAt = time.Now()
	apply(job)
	return s.save()
}

// RecoverFiring resets jobs stranded in firing by a crash back to
// pending. Their fire time is left alone; a past fire time makes them due
// immediately on the next tick.
func (s *Store) RecoverFiring() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recovered := 0
	for _, job := range s.data.Jobs {
		if job.State == StateFiring {
			job.State = StatePending
			job.UpdatedAt = time.Now()
			recovered++
		}
	}
	if recovered == 0 {
		return 0, nil
	}
	return recovered, s.save()
}
