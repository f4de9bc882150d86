package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ashimregmi/sathi/internal/config"
	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
	"github.com/ashimregmi/sathi/internal/notify"
)

// The tick interval bounds how late a job can fire after its due time.
const maxTickInterval = 60 * time.Second

// Sender delivers one reminder occurrence.
type Sender interface {
	Send(ctx context.Context, recipient, body string) notify.Result
}

// Engine owns the job store and the single background loop that evaluates
// due jobs. All state transitions go through the engine, never through a
// request-handling turn; turns only upsert and delete.
type Engine struct {
	store  *Store
	sender Sender

	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
	ticker   *time.Ticker
	inFlight uint

	tickInterval         time.Duration
	shutdownTimeout      time.Duration
	notifyTimeout        time.Duration
	inFlightPollInterval time.Duration
}

func NewEngine(store *Store, sender Sender, cfg config.SchedulerConfig) (*Engine, error) {
	tickInterval, err := config.DurationOrDefault(cfg.TickInterval, config.DefaultSchedulerTickInterval)
	if err != nil {
		return nil, fmt.Errorf("parse scheduler tick interval: %w", err)
	}
	if tickInterval > maxTickInterval {
		tickInterval = maxTickInterval
	}

	shutdownTimeout, err := config.DurationOrDefault(cfg.ShutdownTimeout, config.DefaultSchedulerShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse scheduler shutdown timeout: %w", err)
	}

	notifyTimeout, err := config.DurationOrDefault(cfg.NotifyTimeout, config.DefaultSchedulerNotifyTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse scheduler notify timeout: %w", err)
	}

	inFlightPollInterval, err := config.DurationOrDefault(cfg.InFlightPollInterval, config.DefaultSchedulerInFlightPollInterval)
	if err != nil {
		return nil, fmt.Errorf("parse scheduler in-flight poll interval: %w", err)
	}

	return &Engine{
		store:                store,
		sender:               sender,
		tickInterval:         tickInterval,
		shutdownTimeout:      shutdownTimeout,
		notifyTimeout:        notifyTimeout,
		inFlightPollInterval: inFlightPollInterval,
	}, nil
}

// Schedule upserts a job, replacing any live job with the same id.
func (e *Engine) Schedule(job Job) error {
	if err := e.store.Upsert(job); err != nil {
		return err
	}
	slog.Info("Reminder scheduled",
		"job", job.ID,
		"fire_at", job.FireAt.Format(time.RFC3339),
		"recurrence", job.Recurrence)
	return nil
}

// Cancel removes a job from the store.
func (e *Engine) Cancel(id string) error {
	if err := e.store.Delete(id); err != nil {
		return err
	}
	slog.Info("Reminder cancelled", "job", id)
	return nil
}

// Jobs lists stored jobs, optionally filtered by recipient.
func (e *Engine) Jobs(recipient string) []Job {
	all := e.store.All()
	if recipient == "" {
		return all
	}
	filtered := all[:0]
	for _, job := range all {
		if job.Recipient == recipient {
			filtered = append(filtered, job)
		}
	}
	return filtered
}

func (e *Engine) Init(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	recovered, err := e.store.RecoverFiring()
	if err != nil {
		return fmt.Errorf("recover firing jobs: %w", err)
	}
	if recovered > 0 {
		slog.Info("Recovered jobs stranded mid-delivery", "count", recovered)
	}

	slog.Info("Scheduler initialized", "tick_interval", e.tickInterval)
	return nil
}

func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	e.ticker = time.NewTicker(e.tickInterval)
	e.mu.Unlock()

	go e.run()

	slog.Info("Scheduler started")
	return nil
}

func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	e.mu.Unlock()

	if e.ticker != nil {
		e.ticker.Stop()
	}
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.waitForInFlight()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Scheduler stopped gracefully")
		return nil
	case <-time.After(e.shutdownTimeout):
		slog.Warn("Scheduler shutdown timeout, force stopping")
		return sathiErrors.Internal("shutdown timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) Health(ctx context.Context) error {
	if e.ctx == nil {
		return sathiErrors.Internal("scheduler not initialized")
	}
	if !e.IsRunning() {
		return sathiErrors.Internal("scheduler not running")
	}
	return nil
}

func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

func (e *Engine) run() {
	// First evaluation happens immediately so jobs due during downtime
	// fire on startup rather than one tick late.
	e.onTick()

	for {
		select {
		case <-e.ticker.C:
			e.onTick()
		case <-e.ctx.Done():
			slog.Info("Scheduler run loop stopped")
			return
		}
	}
}

// onTick fires every due job in its own goroutine so one slow delivery
// cannot push the rest past their due time.
func (e *Engine) onTick() {
	for _, job := range e.store.Due(time.Now()) {
		go e.fire(job.ID)
	}
}

// fire delivers one due occurrence. The mark-firing transition is the
// gate: whoever loses the conflict walks away without sending.
func (e *Engine) fire(id string) {
	e.mu.Lock()
	e.inFlight++
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.inFlight--
		e.mu.Unlock()
	}()

	job, err := e.store.MarkFiring(id)
	if err != nil {
		if sathiErrors.IsCategory(err, sathiErrors.ErrConflict) {
			slog.Debug("Occurrence already claimed", "job", id)
		} else {
			slog.Error("Failed to claim job", "job", id, "error", err)
		}
		return
	}

	runID := ulid.Make().String()
	firedAt := time.Now()

	ctx, cancel := context.WithTimeout(e.ctx, e.notifyTimeout)
	result := e.sender.Send(ctx, job.Recipient, job.Message)
	cancel()

	if result.Delivered() {
		slog.Info("Reminder delivered", "job", job.ID, "run", runID, "message_id", result.MessageID)
	} else {
		slog.Warn("Reminder delivery failed", "job", job.ID, "run", runID, "reason", result.Reason)
	}

	if job.Recurring() {
		// Failed or not, a recurring job marches on to its next
		// occurrence, always strictly after the firing time.
		next, ok := NextOccurrence(job, firedAt)
		if !ok {
			slog.Error("Recurring job produced no next occurrence", "job", job.ID)
			return
		}
		if err := e.store.Reschedule(job.ID, next); err != nil {
			e.logTransitionErr(job.ID, "reschedule", err)
		}
		return
	}

	if result.Delivered() {
		if err := e.store.MarkDelivered(job.ID); err != nil {
			e.logTransitionErr(job.ID, "mark delivered", err)
		}
		return
	}
	if err := e.store.MarkFailed(job.ID); err != nil {
		e.logTransitionErr(job.ID, "mark failed", err)
	}
}

// A conflict here means an upsert replaced the job mid-delivery; the new
// definition wins and the stale transition is dropped.
func (e *Engine) logTransitionErr(id, op string, err error) {
	if sathiErrors.IsCategory(err, sathiErrors.ErrConflict) {
		slog.Debug("Job replaced mid-delivery, dropping stale transition", "job", id, "op", op)
		return
	}
	slog.Error("Job transition failed", "job", id, "op", op, "error", err)
}

func (e *Engine) waitForInFlight() {
	ticker := time.NewTicker(e.inFlightPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.mu.RLock()
			count := e.inFlight
			e.mu.RUnlock()

			if count == 0 {
				return
			}
			slog.Info("Waiting for in-flight deliveries", "count", count)
		case <-e.ctx.Done():
			return
		}
	}
}
