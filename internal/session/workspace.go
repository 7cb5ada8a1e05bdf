package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNoSession is returned when no edit session is open.
	ErrNoSession = errors.New("session: no open session")
	// ErrSessionMismatch is returned when the open session edits another
	// account than the caller expects.
	ErrSessionMismatch = errors.New("session: open account differs")
)

// Workspace holds the current edit session. Opening another account closes,
// and so flushes, the previous session first.
type Workspace struct {
	backend Backend
	opts    []Option

	mu      sync.Mutex
	current *Session
}

// NewWorkspace creates an empty workspace. opts apply to every session.
func NewWorkspace(backend Backend, opts ...Option) *Workspace {
	return &Workspace{backend: backend, opts: opts}
}

// Open closes the current session and opens name.
func (w *Workspace) Open(ctx context.Context, name string) (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// A failed flush is logged and reported through Hooks.OnSaved; it does
	// not block navigation.
	_ = w.closeLocked(ctx)
	s, err := Open(ctx, w.backend, name, w.opts...)
	if err != nil {
		return nil, err
	}
	w.current = s
	return s, nil
}

// New closes the current session and starts one on the empty account.
func (w *Workspace) New(ctx context.Context) (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// A failed flush is logged and reported through Hooks.OnSaved; it does
	// not block navigation.
	_ = w.closeLocked(ctx)
	w.current = New(w.backend, w.opts...)
	return w.current, nil
}

// Current returns the open session.
func (w *Workspace) Current() (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return nil, ErrNoSession
	}
	return w.current, nil
}

// Close flushes and closes the current session, if any.
func (w *Workspace) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked(ctx)
}

// Delete deletes name, which must be the account of the current session, and
// ends the session. Another open account is left alone.
func (w *Workspace) Delete(ctx context.Context, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return ErrNoSession
	}
	if open := w.current.Name(); open != name {
		return fmt.Errorf("%w: open %q, delete %q", ErrSessionMismatch, open, name)
	}
	s := w.current
	w.current = nil
	return s.Delete(ctx)
}

// DeleteAccount deletes the stored account name. When name is open, the
// session ends without saving its pending edits; otherwise the current
// session is untouched.
func (w *Workspace) DeleteAccount(ctx context.Context, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != nil && w.current.Name() == name {
		s := w.current
		w.current = nil
		return s.Delete(ctx)
	}
	return w.backend.DeleteAccount(ctx, name)
}

func (w *Workspace) closeLocked(ctx context.Context) error {
	if w.current == nil {
		return nil
	}
	s := w.current
	w.current = nil
	return s.Close(ctx)
}
