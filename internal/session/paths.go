package session

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ashimregmi/sathi/internal/pathutil"
)

// ResolveWorkspacePath expands the configured workspace path, falling
// back to ~/.sathi/workspace when empty.
func ResolveWorkspacePath(configured string) (string, error) {
	if trimmed := strings.TrimSpace(configured); trimmed != "" {
		return pathutil.Expand(trimmed)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sathi", "workspace"), nil
}

// SchedulerPath returns the job store file inside a workspace.
func SchedulerPath(workspacePath string) string {
	return filepath.Join(workspacePath, "scheduler", "jobs.json")
}

func sessionsDir(workspacePath string) string {
	return filepath.Join(workspacePath, "sessions")
}

func lockPath(workspacePath string) string {
	return filepath.Join(workspacePath, "workspace.lock")
}
