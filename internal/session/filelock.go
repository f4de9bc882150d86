package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// FileLock guards a workspace against a second daemon instance. The lock
// file lives at the workspace root and is held for the process lifetime.
type FileLock struct {
	flk      *flock.Flock
	path     string
	acquired time.Time
	mu       sync.Mutex
}

type FileLockConfig struct {
	Retry    time.Duration
	MaxRetry int
}

func AcquireLock(workspacePath string, cfg FileLockConfig) (*FileLock, error) {
	if cfg.Retry <= 0 {
		cfg.Retry = 100 * time.Millisecond
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 1
	}

	path := lockPath(workspacePath)
	flk := flock.New(path)

	for i := 0; i < cfg.MaxRetry; i++ {
		locked, err := flk.TryLock()
		if err != nil {
			return nil, fmt.Errorf("try workspace lock: %w", err)
		}
		if locked {
			fl := &FileLock{flk: flk, path: path, acquired: time.Now()}
			slog.Info("Workspace lock acquired", "path", path)
			return fl, nil
		}
		if i < cfg.MaxRetry-1 {
			time.Sleep(cfg.Retry)
		}
	}

	return nil, fmt.Errorf("workspace %s is locked by another instance", workspacePath)
}

func (fl *FileLock) Release() {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.flk == nil {
		return
	}
	if err := fl.flk.Unlock(); err != nil {
		slog.Error("Failed to release workspace lock", "path", fl.path, "error", err)
	} else {
		slog.Info("Workspace lock released", "path", fl.path, "held", time.Since(fl.acquired).Round(time.Millisecond))
	}
	fl.flk = nil
}

func (fl *FileLock) Held() bool {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.flk != nil
}
