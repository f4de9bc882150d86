package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Component is a long-lived part of the daemon with an ordered lifecycle.
type Component interface {
	Name() string
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) error
}

type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusStopped  Status = "stopped"
)

// Daemon initializes and starts components in registration order and
// stops them in reverse. A failed start rolls back what already started.
type Daemon struct {
	mu              sync.RWMutex
	components      []Component
	status          Status
	shutdownTimeout time.Duration
	healthInterval  time.Duration
}

type Config struct {
	ShutdownTimeout time.Duration
	HealthInterval  time.Duration
}

func New(cfg Config) *Daemon {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = time.Minute
	}
	return &Daemon{
		status:          StatusStarting,
		shutdownTimeout: cfg.ShutdownTimeout,
		healthInterval:  cfg.HealthInterval,
	}
}

func (d *Daemon) Add(comp Component) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.components = append(d.components, comp)
	slog.Info("Component registered", "component", comp.Name())
}

func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

func (d *Daemon) setStatus(status Status) {
	d.mu.Lock()
	d.status = status
	d.mu.Unlock()
}

// Run blocks until the context is cancelled or an interrupt arrives,
// then shuts everything down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	started, err := d.startAll(ctx)
	if err != nil {
		d.stopAll(started)
		return err
	}

	d.setStatus(StatusRunning)
	slog.Info("Daemon is running", "components", len(d.components))

	go d.monitorHealth(ctx)

	<-ctx.Done()

	slog.Info("Shutting down", "reason", ctx.Err())
	d.setStatus(StatusStopping)
	d.stopAll(d.components)
	d.setStatus(StatusStopped)
	return nil
}

func (d *Daemon) startAll(ctx context.Context) ([]Component, error) {
	var started []Component
	for _, comp := range d.components {
		if err := comp.Init(ctx); err != nil {
			return started, fmt.Errorf("init %s: %w", comp.Name(), err)
		}
		if err := comp.Start(ctx); err != nil {
			return started, fmt.Errorf("start %s: %w", comp.Name(), err)
		}
		started = append(started, comp)
		slog.Info("Component started", "component", comp.Name())
	}
	return started, nil
}

// stopAll stops components in reverse registration order.
func (d *Daemon) stopAll(comps []Component) {
	for i := len(comps) - 1; i >= 0; i-- {
		comp := comps[i]
		ctx, cancel := context.WithTimeout(context.Background(), d.shutdownTimeout)
		if err := comp.Stop(ctx); err != nil {
			slog.Error("Component stop failed", "component", comp.Name(), "error", err)
		} else {
			slog.Info("Component stopped", "component", comp.Name())
		}
		cancel()
	}
}

func (d *Daemon) monitorHealth(ctx context.Context) {
	ticker := time.NewTicker(d.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, comp := range d.components {
				if err := comp.Health(ctx); err != nil {
					slog.Warn("Component unhealthy", "component", comp.Name(), "error", err)
				}
			}
		}
	}
}
