package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// IsFresh reports whether a cache written at lastModified is still usable
// at now. A zero lastModified means no cache exists yet. The boundary is
// strict: a cache exactly lifespan old is stale.
func IsFresh(lastModified, now time.Time, lifespan time.Duration) bool {
	if lastModified.IsZero() {
		return false
	}
	return now.Sub(lastModified) < lifespan
}

// Store persists one JSON document at a fixed path. Writes replace the
// whole file atomically so a concurrent reader never observes a partially
// written document.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// ModTime returns the last-modified time of the stored document, and
// whether one exists at all.
func (s *Store) ModTime() (time.Time, bool) {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func (s *Store) Load(v any) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("reading cache: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding cache: %w", err)
	}
	return nil
}

func (s *Store) Save(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cache-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("setting cache permissions: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing cache: %w", err)
	}

	return nil
}
