package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrLocked means another run holds the data directory.
var ErrLocked = errors.New("data directory is locked by another run")

const (
	JobListFile   = "joblist.json"
	JobDetailFile = "jobdetail.json"
	UserInputFile = "user_input.json"
	PromptFile    = "prompt.txt"
	AnalysisFile  = "analysis.md"
	lockFile      = ".lock"
)

// Store reads and writes the JSON and text files of one data directory.
// Writes are serialized; interception callbacks write through it concurrently.
type Store struct {
	mu   sync.Mutex
	dir  string
	lock *flock.Flock
}

// Open creates dir if needed and takes an exclusive lock on it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock data dir: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}

	return &Store{dir: dir, lock: lock}, nil
}

func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

func (s *Store) Dir() string { return s.dir }

// Path resolves name inside the data directory.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// WriteJSON stores v as indented JSON, keeping non-ASCII text readable.
func (s *Store) WriteJSON(name string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return s.write(name, buf.Bytes())
}

// ReadJSON decodes name into v. found is false when the file does not exist,
// in which case v keeps whatever default the caller put there.
func (s *Store) ReadJSON(name string, v any) (found bool, err error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("parse %s: %w", name, err)
	}
	return true, nil
}

// ReadRaw returns the file contents, or nil when it does not exist.
func (s *Store) ReadRaw(name string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func (s *Store) WriteText(name, text string) error {
	return s.write(name, []byte(text))
}

func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// Delete removes name; a missing file is fine.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// write replaces the file atomically so a crash never leaves half a JSON array.
func (s *Store) write(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dir for %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// MustClose is for deferred cleanup in main.
func (s *Store) MustClose() {
	if err := s.Close(); err != nil {
		log.Printf("⚠️ Failed to unlock data dir: %v", err)
	}
}
