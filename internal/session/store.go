package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"github.com/oklog/ulid/v2"

	sathiErrors "github.com/ashimregmi/sathi/internal/errors"
)

// Store is the checkpoint store: per-session metadata in a single index
// file, transcripts as append-only JSONL, one file per session. It owns
// the workspace lock; a second Open on the same workspace fails fast.
type Store struct {
	basePath string
	lock     *FileLock

	mu    sync.RWMutex
	index Index
}

func Open(workspacePath string, lockCfg FileLockConfig) (*Store, error) {
	basePath, err := ResolveWorkspacePath(workspacePath)
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{sessionsDir(basePath), filepath.Dir(SchedulerPath(basePath))} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create workspace dir %s: %w", dir, err)
		}
	}

	lock, err := AcquireLock(basePath, lockCfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		basePath: basePath,
		lock:     lock,
		index:    Index{Sessions: make(map[string]Meta)},
	}

	indexPath := s.indexPath()
	if data, err := os.ReadFile(indexPath); err == nil {
		if err := json.Unmarshal(data, &s.index); err != nil {
			slog.Warn("Failed to parse session index, starting fresh", "path", indexPath, "error", err)
			s.index = Index{Sessions: make(map[string]Meta)}
		}
	}
	if s.index.Sessions == nil {
		s.index.Sessions = make(map[string]Meta)
	}

	return s, nil
}

func (s *Store) Close() {
	s.lock.Release()
}

// BasePath is the resolved workspace root.
func (s *Store) BasePath() string { return s.basePath }

func (s *Store) indexPath() string {
	return filepath.Join(sessionsDir(s.basePath), "index.json")
}

// transcriptPath flattens the session id into a safe file name; ids come
// from adapters and may contain separators.
func (s *Store) transcriptPath(sessionID string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		default:
			return r
		}
	}, sessionID)
	return filepath.Join(sessionsDir(s.basePath), name+".jsonl")
}

// Get returns session metadata, creating a fresh record for unknown ids.
func (s *Store) Get(sessionID, source string) Meta {
	s.mu.RLock()
	meta, ok := s.index.Sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return meta
	}

	now := time.Now()
	return Meta{ID: sessionID, Source: source, CreatedAt: now, UpdatedAt: now}
}

func (s *Store) Save(meta Meta) error {
	if strings.TrimSpace(meta.ID) == "" {
		return sathiErrors.Validation("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meta.UpdatedAt = time.Now()
	s.index.Sessions[meta.ID] = meta
	return s.saveIndex()
}

// saveIndex is called with s.mu held.
func (s *Store) saveIndex() error {
	data, err := json.MarshalIndent(&s.index, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(s.indexPath(), bytes.NewReader(data))
}

// Append writes one transcript entry. The entry id and timestamp are
// assigned here.
func (s *Store) Append(sessionID string, role Role, content string) error {
	entry := Entry{
		ID:        ulid.Make().String(),
		Timestamp: time.Now(),
		Role:      role,
		Content:   content,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.transcriptPath(sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// History returns the last limit transcript entries in order; limit <= 0
// returns everything. Unparseable lines are skipped, not fatal.
func (s *Store) History(sessionID string, limit int) ([]Entry, error) {
	s.mu.RLock()
	data, err := os.ReadFile(s.transcriptPath(sessionID))
	s.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var entries []Entry
	for _, line := range lines {
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			slog.Warn("Skipping malformed transcript line", "session", sessionID, "error", err)
			continue
		}
		entries = append(entries, entry)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// Reset archives the transcript and clears routing state, keeping the
// session's phone so the user does not have to repeat it.
func (s *Store) Reset(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.transcriptPath(sessionID)
	if _, err := os.Stat(path); err == nil {
		archived := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102T150405"))
		if err := os.Rename(path, archived); err != nil {
			return fmt.Errorf("archive transcript: %w", err)
		}
	}

	if meta, ok := s.index.Sessions[sessionID]; ok {
		meta.LastIntent = ""
		meta.UpdatedAt = time.Now()
		s.index.Sessions[sessionID] = meta
		return s.saveIndex()
	}
	return nil
}
