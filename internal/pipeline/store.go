// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
)

// ErrDuplicateEntry is returned when a stage name is appended twice.
var ErrDuplicateEntry = errors.New("duplicate context entry")

// Entry is one validated stage output.
type Entry struct {
	// Seq is the 1-based insertion position.
	Seq int

	// Stage is the name of the stage that produced Text.
	Stage string

	// Text is the normalized output.
	Text string

	// Attempts is the number of generation calls the stage used.
	Attempts int
}

// View is read-only access to a Store.
type View interface {
	Get(stage string) (Entry, bool)
	Entries() []Entry
	Len() int
}

// Store is the append-only context of one run. Entries are kept in
// insertion order and are never modified or removed; a later correction
// is recorded under its own stage name. Store is not safe for concurrent
// use: each run owns its own.
type Store struct {
	entries []Entry
	index   map[string]int
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Append records text under stage. It fails if stage already has an entry.
func (s *Store) Append(stage, text string, attempts int) (Entry, error) {
	if _, exists := s.index[stage]; exists {
		return Entry{}, fmt.Errorf("%w: %s", ErrDuplicateEntry, stage)
	}
	e := Entry{
		Seq:      len(s.entries) + 1,
		Stage:    stage,
		Text:     text,
		Attempts: attempts,
	}
	s.index[stage] = len(s.entries)
	s.entries = append(s.entries, e)
	return e, nil
}

// Get returns the entry recorded for stage.
func (s *Store) Get(stage string) (Entry, bool) {
	i, ok := s.index[stage]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Has reports whether stage has an entry.
func (s *Store) Has(stage string) bool {
	_, ok := s.index[stage]
	return ok
}

// Entries returns a copy of all entries in insertion order.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// View returns a read-only view backed by s.
func (s *Store) View() View {
	return readOnly{s: s}
}

// readOnly hides Append so a View cannot be asserted back to a writer.
type readOnly struct {
	s *Store
}

func (r readOnly) Get(stage string) (Entry, bool) { return r.s.Get(stage) }
func (r readOnly) Entries() []Entry               { return r.s.Entries() }
func (r readOnly) Len() int                       { return r.s.Len() }
