// Package editor holds the in-memory account being edited.
//
// A Store has exactly one writer role, its own mutators, and any number of
// readers. Every mutation publishes a fresh snapshot: slices touched by the
// mutation are copied, untouched data is shared, and nothing reachable from an
// earlier snapshot is modified. Readers must treat snapshots as read-only.
package editor

import (
	"slices"
	"sync"

	"github.com/starford/tortoise/internal/models"
)

type subscription struct {
	id int
	fn func(models.Account)
}

// Store owns one Account and notifies subscribers after each mutation.
//
// Listeners run synchronously, in mutation order, on the goroutine that issued
// the mutation. They may read the store but must not mutate it.
type Store struct {
	writeMu sync.Mutex // serializes mutations together with their notifications

	mu        sync.RWMutex
	current   models.Account
	version   uint64
	listeners []subscription
	nextID    int
}

// New returns a store holding the empty account.
func New() *Store {
	return &Store{current: models.NewAccount()}
}

// Snapshot returns the current account.
func (s *Store) Snapshot() models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Version counts the mutations applied so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Issues returns the validation flags of the current account.
func (s *Store) Issues() []models.Issue {
	return models.Issues(s.Snapshot())
}

// Subscribe registers fn to receive the snapshot produced by each mutation
// and returns a function that removes it.
func (s *Store) Subscribe(fn func(models.Account)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.listeners = slices.DeleteFunc(s.listeners, func(sub subscription) bool {
				return sub.id == id
			})
		})
	}
}

// update applies fn to a shallow copy of the current account and publishes
// the result. fn must copy any slice or pointer it changes.
func (s *Store) update(fn func(a *models.Account) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.Snapshot()
	if err := fn(&next); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = next
	s.version++
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, sub := range listeners {
		sub.fn(next)
	}
	return nil
}

// SetAll replaces the whole account. The store keeps its own deep copy.
func (s *Store) SetAll(account models.Account) {
	cp := account.Clone()
	_ = s.update(func(a *models.Account) error {
		*a = cp
		return nil
	})
}

// Reset restores the empty account.
func (s *Store) Reset() {
	_ = s.update(func(a *models.Account) error {
		*a = models.NewAccount()
		return nil
	})
}

// SetName replaces the account name.
func (s *Store) SetName(name string) {
	_ = s.update(func(a *models.Account) error {
		a.Name = name
		return nil
	})
}

// SetStartDate replaces the account start date. The value is stored as given.
func (s *Store) SetStartDate(date string) {
	_ = s.update(func(a *models.Account) error {
		a.StartDate = date
		return nil
	})
}

// SetEndDate replaces the account end date. The value is stored as given.
func (s *Store) SetEndDate(date string) {
	_ = s.update(func(a *models.Account) error {
		a.EndDate = date
		return nil
	})
}

// SetBalance replaces the starting balance. Non-finite values are stored and
// show up in Issues.
func (s *Store) SetBalance(balance float64) {
	_ = s.update(func(a *models.Account) error {
		a.Balance = balance
		return nil
	})
}
