// Package book holds the opening book: an append-only mapping from a
// canonical position key to the move recommended there. The persisted
// form is a single JSON document, written whole on every flush, so it
// stays human-readable and safe to hand-edit between runs.
package book

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Entry is the recorded recommendation for a position.
type Entry struct {
	Move string `json:"move"`
}

// Store owns the in-memory book and its durability. The book only grows:
// an entry, once present, is never overwritten or removed during a run.
type Store struct {
	sync.Mutex
	path       string
	entries    map[string]Entry
	pending    int // insertions since the last flush
	flushEvery int
}

// NewStore creates an empty store persisted at path. flushEvery is the
// number of newly inserted entries between checkpoints; zero disables
// mid-run checkpoints (the final flush still happens).
func NewStore(path string, flushEvery int) *Store {
	return &Store{
		path:       path,
		entries:    make(map[string]Entry),
		flushEvery: flushEvery,
	}
}

// Load reads the persisted book. A missing file is the normal first-run
// case. A file that exists but does not parse is surfaced as an error so
// a half-built book is never silently discarded.
func (s *Store) Load() error {
	s.Lock()
	defer s.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		log.Info().Str("path", s.path).Msg("no existing book; starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("book: read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return fmt.Errorf("book: %s is corrupt, fix it or move it aside: %w", s.path, err)
	}
	log.Info().Int("positions", len(s.entries)).Str("path", s.path).Msg("loaded book")
	return nil
}

// Get looks up the entry for a position key.
func (s *Store) Get(key string) (Entry, bool) {
	s.Lock()
	defer s.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

// Put records an entry for a new position and reports whether it was
// inserted. A position already in the book is left untouched. Every
// flushEvery-th insertion checkpoints the book to disk.
func (s *Store) Put(key string, e Entry) (bool, error) {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.entries[key]; ok {
		return false, nil
	}
	s.entries[key] = e
	s.pending++
	if s.flushEvery > 0 && s.pending >= s.flushEvery {
		if err := s.flushLocked(); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Len returns the number of positions in the book.
func (s *Store) Len() int {
	s.Lock()
	defer s.Unlock()
	return len(s.entries)
}

// Positions returns every position key, sorted.
func (s *Store) Positions() []string {
	s.Lock()
	defer s.Unlock()
	keys := lo.Keys(s.entries)
	sort.Strings(keys)
	return keys
}

// Flush writes the whole book to its persisted form. Safe to call
// repeatedly; callers must call it once more before exiting so no
// completed analysis is lost.
func (s *Store) Flush() error {
	s.Lock()
	defer s.Unlock()
	return s.flushLocked()
}

// flushLocked writes to a temp file in the same directory and renames it
// over the book, so a crash mid-write cannot corrupt the previous flush.
func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("book: marshal: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".book-*.json")
	if err != nil {
		return fmt.Errorf("book: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("book: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("book: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("book: rename over %s: %w", s.path, err)
	}
	s.pending = 0
	log.Debug().Int("positions", len(s.entries)).Str("path", s.path).Msg("book flushed")
	return nil
}
