// Package selection tracks which accounts take part in a scenario forecast.
package selection

import (
	"slices"
	"strings"
	"sync"
)

// Store is an ordered set of selected account names.
type Store struct {
	mu        sync.Mutex
	names     []string
	listeners map[int]func([]string)
	nextID    int
}

// New returns an empty selection.
func New() *Store {
	return &Store{listeners: make(map[int]func([]string))}
}

// Selected returns the selected names in the order they were added.
func (s *Store) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.names)
}

// Contains reports whether name is selected.
func (s *Store) Contains(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.names, name)
}

// Add appends name to the selection. Adding a selected name does nothing.
func (s *Store) Add(name string) bool {
	return s.change(func(names []string) ([]string, bool) {
		if slices.Contains(names, name) {
			return names, false
		}
		return append(slices.Clone(names), name), true
	})
}

// Remove drops name from the selection.
func (s *Store) Remove(name string) bool {
	return s.change(func(names []string) ([]string, bool) {
		i := slices.Index(names, name)
		if i < 0 {
			return names, false
		}
		return slices.Delete(slices.Clone(names), i, i+1), true
	})
}

// Toggle adds name if absent and removes it otherwise. It returns whether
// name is selected afterwards.
func (s *Store) Toggle(name string) bool {
	if s.Remove(name) {
		return false
	}
	s.Add(name)
	return true
}

// Clear empties the selection.
func (s *Store) Clear() {
	s.change(func(names []string) ([]string, bool) {
		return nil, len(names) > 0
	})
}

// Subscribe registers fn to receive the selection after every change.
func (s *Store) Subscribe(fn func([]string)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Query encodes the selection as the comma-separated accounts parameter.
func (s *Store) Query() string {
	return strings.Join(s.Selected(), ",")
}

// ParseQuery splits a comma-separated accounts parameter, dropping blanks
// and duplicates while keeping first-seen order.
func ParseQuery(q string) []string {
	var out []string
	for _, part := range strings.Split(q, ",") {
		part = strings.TrimSpace(part)
		if part == "" || slices.Contains(out, part) {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (s *Store) change(fn func([]string) ([]string, bool)) bool {
	s.mu.Lock()
	next, changed := fn(s.names)
	if !changed {
		s.mu.Unlock()
		return false
	}
	s.names = next
	snapshot := slices.Clone(next)
	listeners := make([]func([]string), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
	return true
}
