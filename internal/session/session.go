// Package session ties an edit store to its autosave controller for the
// lifetime of one edit view.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/tortoise/internal/autosave"
	"github.com/starford/tortoise/internal/editor"
	"github.com/starford/tortoise/internal/models"
)

// Backend is the persistence the session saves through.
type Backend interface {
	GetAccount(ctx context.Context, name string) (models.Account, error)
	SaveAccount(ctx context.Context, a models.Account) error
	DeleteAccount(ctx context.Context, name string) error
}

// Hooks receives session notifications. Any field may be nil.
type Hooks struct {
	OnChange func(a models.Account)
	OnSaved  func(a models.Account, err error)
}

type config struct {
	window time.Duration
	logger *slog.Logger
	hooks  Hooks
}

// Option configures sessions.
type Option func(*config)

// WithWindow sets the autosave quiescence window.
func WithWindow(d time.Duration) Option {
	return func(c *config) { c.window = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithHooks registers change and save notifications.
func WithHooks(h Hooks) Option {
	return func(c *config) { c.hooks = h }
}

func newConfig(opts []Option) config {
	c := config{window: autosave.DefaultWindow, logger: slog.Default()}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// Session is one open edit view.
type Session struct {
	backend Backend
	store   *editor.Store
	ctrl    *autosave.Controller
	logger  *slog.Logger
	unsub   func()

	mu     sync.Mutex
	closed bool
}

// Open loads the named account into a fresh store. Autosave is attached
// after loading, so opening does not write.
func Open(ctx context.Context, backend Backend, name string, opts ...Option) (*Session, error) {
	a, err := backend.GetAccount(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", name, err)
	}
	store := editor.New()
	store.SetAll(a)
	return start(backend, store, newConfig(opts)), nil
}

// New starts a session on the empty account. Saves fail until the account
// has a usable name.
func New(backend Backend, opts ...Option) *Session {
	return start(backend, editor.New(), newConfig(opts))
}

func start(backend Backend, store *editor.Store, cfg config) *Session {
	ctrl := autosave.New(backend,
		autosave.WithWindow(cfg.window),
		autosave.WithLogger(cfg.logger),
		autosave.WithOnSaved(cfg.hooks.OnSaved),
	)
	s := &Session{backend: backend, store: store, ctrl: ctrl, logger: cfg.logger}
	if cfg.hooks.OnChange != nil {
		s.unsub = store.Subscribe(cfg.hooks.OnChange)
	}
	ctrl.Watch(store)
	return s
}

// Store returns the session's edit store.
func (s *Session) Store() *editor.Store { return s.store }

// Autosave returns the session's autosave controller.
func (s *Session) Autosave() *autosave.Controller { return s.ctrl }

// Name returns the name of the account being edited.
func (s *Session) Name() string { return s.store.Snapshot().Name }

// Closed reports whether the session has ended.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Flush saves pending edits now.
func (s *Session) Flush(ctx context.Context) error {
	return s.ctrl.FlushNow(ctx)
}

// Close flushes pending edits and stops autosave. Later calls return nil.
func (s *Session) Close(ctx context.Context) error {
	if !s.markClosed() {
		return nil
	}
	return s.ctrl.Close(ctx)
}

// Delete drops pending edits, deletes the stored account and resets the
// store. Autosave is stopped before the delete, so edits arriving meanwhile
// are never written. The session is closed afterwards, even when the delete
// fails.
func (s *Session) Delete(ctx context.Context) error {
	if !s.markClosed() {
		return fmt.Errorf("session: delete: session closed")
	}
	s.ctrl.Stop()
	name := s.store.Snapshot().Name
	err := s.backend.DeleteAccount(ctx, name)
	if err != nil {
		s.logger.Error("session: delete failed", slog.String("account", name), slog.String("error", err.Error()))
		return fmt.Errorf("session: delete %s: %w", name, err)
	}
	s.store.Reset()
	s.logger.Info("session: account deleted", slog.String("account", name))
	return nil
}

func (s *Session) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	return true
}
