// Package history keeps the lookups shown in the pinned panel, persisted as a
// JSON file.
package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultLimit caps how many entries a store keeps.
const DefaultLimit = 200

// Entry is one remembered lookup.
type Entry struct {
	Query       string    `json:"query"`
	Translation string    `json:"translation"`
	Provider    string    `json:"provider,omitempty"`
	Pinned      bool      `json:"pinned,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Save writes entries to path, creating parent directories as needed.
func Save(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads the entries stored at path.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Store is the in-memory view of a history file, newest entry first. An
// empty path keeps the history in memory only.
type Store struct {
	mu      sync.Mutex
	path    string
	limit   int
	entries []Entry
	now     func() time.Time
}

// Open loads the history at path. A missing file is an empty history.
func Open(path string, limit int) (*Store, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s := &Store{path: path, limit: limit, now: time.Now}
	if path == "" {
		return s, nil
	}
	entries, err := Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	s.entries = dedupe(entries)
	s.trim()
	return s, nil
}

// Path returns the backing file, if any.
func (s *Store) Path() string {
	return s.path
}

// Add records e as the newest entry. An older entry for the same query is
// replaced, keeping its pinned flag.
func (s *Store) Add(e Entry) error {
	e.Query = strings.TrimSpace(e.Query)
	if e.Query == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if i := s.indexOf(e.Query); i >= 0 {
		e.Pinned = e.Pinned || s.entries[i].Pinned
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
	}
	s.entries = append([]Entry{e}, s.entries...)
	s.trim()
	return s.persist()
}

// SetPinned flips the pinned flag of the entry for query.
func (s *Store) SetPinned(query string, pinned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(query)
	if i < 0 {
		return nil
	}
	s.entries[i].Pinned = pinned
	return s.persist()
}

// Remove drops the entry for query.
func (s *Store) Remove(query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(query)
	if i < 0 {
		return nil
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return s.persist()
}

// Entries returns a copy of the history, newest first.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Latest returns the newest entry.
func (s *Store) Latest() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[0], true
}

func (s *Store) indexOf(query string) int {
	key := keyFor(query)
	for i, e := range s.entries {
		if keyFor(e.Query) == key {
			return i
		}
	}
	return -1
}

// trim drops the oldest unpinned entries beyond the limit.
func (s *Store) trim() {
	for len(s.entries) > s.limit {
		dropped := false
		for i := len(s.entries) - 1; i >= 0; i-- {
			if !s.entries[i].Pinned {
				s.entries = append(s.entries[:i], s.entries[i+1:]...)
				dropped = true
				break
			}
		}
		if !dropped {
			return
		}
	}
}

func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	return Save(s.path, s.entries)
}

// dedupe keeps the newest entry per query and orders the result newest
// first.
func dedupe(entries []Entry) []Entry {
	newest := make(map[string]int, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		key := keyFor(e.Query)
		if key == "" {
			continue
		}
		if i, ok := newest[key]; ok {
			if e.CreatedAt.After(out[i].CreatedAt) {
				e.Pinned = e.Pinned || out[i].Pinned
				out[i] = e
			} else {
				out[i].Pinned = out[i].Pinned || e.Pinned
			}
			continue
		}
		newest[key] = len(out)
		out = append(out, e)
	}
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}

func keyFor(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}
