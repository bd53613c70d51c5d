package stack

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stackpr/stackpr/internal/model"
)

// storeVersion is the on-disk format version.
const storeVersion = 1

// storeData wraps the persisted entry set so the format can evolve.
type storeData struct {
	Version int                          `json:"version"`
	Entries map[string]*model.StackEntry `json:"entries"`
}

// StoreCorruptionError reports unreadable or inconsistent persisted stack
// metadata. Fatal: the user must re-initialize tracking for the affected
// stack.
type StoreCorruptionError struct {
	Path   string
	Reason string
	Cause  error
}

func (e *StoreCorruptionError) Error() string {
	msg := fmt.Sprintf("stack metadata at %s is corrupt: %s", e.Path, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg + "\nDelete the file to re-initialize tracking; open PRs will be re-adopted by their identity markers."
}

func (e *StoreCorruptionError) Unwrap() error {
	return e.Cause
}

// Store persists the identity -> StackEntry mapping for one stack
// namespace as a JSON file under .git/stackpr/. Last-write-wins; the
// advisory lock enforces the single-writer assumption.
type Store struct {
	dir string
}

// NewStore creates a store for the given repository root and namespace.
func NewStore(gitRoot string, namespace string) *Store {
	return &Store{dir: filepath.Join(gitRoot, ".git", "stackpr", namespace)}
}

func (s *Store) entriesPath() string {
	return filepath.Join(s.dir, "entries.json")
}

func (s *Store) lockPath() string {
	return filepath.Join(s.dir, "lock")
}

// Load reads the persisted entry set. A missing file yields an empty map.
func (s *Store) Load() (map[string]*model.StackEntry, error) {
	data, err := os.ReadFile(s.entriesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*model.StackEntry), nil
		}
		return nil, fmt.Errorf("failed to read stack metadata: %w", err)
	}

	var wrapper storeData
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, &StoreCorruptionError{Path: s.entriesPath(), Reason: "invalid JSON", Cause: err}
	}
	if wrapper.Version != storeVersion {
		return nil, &StoreCorruptionError{
			Path:   s.entriesPath(),
			Reason: fmt.Sprintf("unsupported format version %d (want %d)", wrapper.Version, storeVersion),
		}
	}
	if wrapper.Entries == nil {
		wrapper.Entries = make(map[string]*model.StackEntry)
	}
	for key, entry := range wrapper.Entries {
		if entry == nil || entry.Identity != key {
			return nil, &StoreCorruptionError{
				Path:   s.entriesPath(),
				Reason: fmt.Sprintf("entry keyed %q does not match its identity", key),
			}
		}
	}
	return wrapper.Entries, nil
}

// Save atomically persists the entry set.
func (s *Store) Save(entries map[string]*model.StackEntry) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create stack metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(storeData{Version: storeVersion, Entries: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stack metadata: %w", err)
	}

	tmp := s.entriesPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write stack metadata: %w", err)
	}
	if err := os.Rename(tmp, s.entriesPath()); err != nil {
		return fmt.Errorf("failed to commit stack metadata: %w", err)
	}
	return nil
}

// Lock takes the advisory single-writer lock for this stack. A held lock
// fails fast with the owning pid rather than risking a racing sync.
func (s *Store) Lock() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create stack metadata directory: %w", err)
	}

	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			owner := "unknown pid"
			if data, readErr := os.ReadFile(s.lockPath()); readErr == nil {
				owner = "pid " + strings.TrimSpace(string(data))
			}
			return fmt.Errorf(
				"another synchronization (%s) holds the lock for this stack; if it is no longer running, remove %s",
				owner, s.lockPath(),
			)
		}
		return fmt.Errorf("failed to take stack lock: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("failed to write stack lock: %w", err)
	}
	return nil
}

// Unlock releases the advisory lock.
func (s *Store) Unlock() error {
	if err := os.Remove(s.lockPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release stack lock: %w", err)
	}
	return nil
}
