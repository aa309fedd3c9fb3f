// Package session persists conversation threads so a later run can
// continue them.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned by Load when the thread does not exist.
var ErrNotFound = errors.New("thread not found")

// Store handles persistence of threads.
type Store struct {
	basePath string
	now      func() time.Time
}

// NewStore creates a new thread store.
// configPath is typically the bloop user config dir.
func NewStore(configPath string) *Store {
	return &Store{
		basePath: filepath.Join(configPath, "threads"),
		now:      time.Now,
	}
}

// RepoHash generates a consistent hash for a repository path.
// This is used to scope threads to a specific project.
func (s *Store) RepoHash(repoPath string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(repoPath)))
	return hex.EncodeToString(hash[:])[:12]
}

// Save persists a thread to disk, stamping its times.
func (s *Store) Save(t *Thread) error {
	if t.ID == "" {
		return errors.New("thread has no id")
	}
	if t.RepoHash == "" {
		t.RepoHash = s.RepoHash(t.RepoPath)
	}
	now := s.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	dir := filepath.Join(s.basePath, t.RepoHash)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create thread directory: %w", err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal thread: %w", err)
	}

	// Written aside and renamed so a crash never leaves half a file.
	filename := s.path(t.RepoHash, t.ID)
	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write thread file: %w", err)
	}
	if err := os.Rename(tmp, filename); err != nil {
		return fmt.Errorf("failed to write thread file: %w", err)
	}
	return nil
}

// Load retrieves a specific thread.
func (s *Store) Load(id string, repoPath string) (*Thread, error) {
	data, err := os.ReadFile(s.path(s.RepoHash(repoPath), id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read thread file: %w", err)
	}

	var t Thread
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal thread: %w", err)
	}
	return &t, nil
}

// List returns all threads for a given repository.
// Threads are sorted by UpdatedAt (newest first).
func (s *Store) List(repoPath string) ([]ThreadMeta, error) {
	dir := filepath.Join(s.basePath, s.RepoHash(repoPath))

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []ThreadMeta{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list thread directory: %w", err)
	}

	var threads []ThreadMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue // Skip unreadable files
		}
		var t Thread
		if err := json.Unmarshal(data, &t); err != nil {
			continue // Skip invalid files
		}

		threads = append(threads, ThreadMeta{
			ID:        t.ID,
			Title:     t.Title,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
			Exchanges: len(t.Exchanges),
		})
	}

	sort.Slice(threads, func(i, j int) bool {
		return threads[i].UpdatedAt.After(threads[j].UpdatedAt)
	})
	return threads, nil
}

func (s *Store) path(repoHash, id string) string {
	return filepath.Join(s.basePath, repoHash, filepath.Base(id)+".json")
}
