// Package autosave persists an edited account without a write per keystroke.
//
// A Controller keeps the latest snapshot it was given and saves it once no
// new snapshot has arrived for a quiescence window. The owner must call Close
// when the edit view goes away (pending work is flushed) or Stop before a
// destructive action (pending work is dropped and nothing is saved again).
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/tortoise/internal/models"
)

// DefaultWindow is the quiescence window used when none is configured.
const DefaultWindow = 30 * time.Second

// Saver is the persistence call the controller throttles.
type Saver interface {
	SaveAccount(ctx context.Context, a models.Account) error
}

// Source emits account snapshots; *editor.Store satisfies it.
type Source interface {
	Subscribe(fn func(models.Account)) func()
}

// Option configures a Controller.
type Option func(*Controller)

// WithWindow sets the quiescence window.
func WithWindow(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithLogger sets the logger used for save diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOnSaved registers a hook called after every save attempt.
func WithOnSaved(fn func(a models.Account, err error)) Option {
	return func(c *Controller) {
		c.onSaved = fn
	}
}

// WithSaveTimeout bounds a save fired by the timer.
func WithSaveTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.saveTimeout = d
	}
}

// Controller debounces saves of account snapshots.
type Controller struct {
	saver       Saver
	window      time.Duration
	saveTimeout time.Duration
	logger      *slog.Logger
	onSaved     func(models.Account, error)

	// saveMu is held for the whole of a save so that Cancel can wait for an
	// in-flight write before the caller deletes the account.
	saveMu sync.Mutex

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64 // bumped whenever the armed timer must be ignored
	pending *models.Account
	closed  bool
	unsub   func()
	lastErr error
	saves   int
}

// New returns a controller that saves through saver.
func New(saver Saver, opts ...Option) *Controller {
	c := &Controller{
		saver:       saver,
		window:      DefaultWindow,
		saveTimeout: time.Minute,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Watch schedules a save for every snapshot src emits until Close.
func (c *Controller) Watch(src Source) {
	unsub := src.Subscribe(c.Schedule)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		unsub()
		return
	}
	prev := c.unsub
	c.unsub = unsub
	c.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// Schedule records a as the state to persist and restarts the window.
func (c *Controller) Schedule(a models.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.logger.Debug("autosave: schedule after close ignored", slog.String("account", a.Name))
		return
	}
	c.pending = &a
	c.gen++
	gen := c.gen
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.window, func() { c.fire(gen) })
}

// Pending reports whether a snapshot is waiting to be saved.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// Saves returns the number of save attempts made so far.
func (c *Controller) Saves() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

// LastError returns the error of the most recent save attempt.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Cancel drops any pending snapshot and stops the timer. If a save is in
// flight, Cancel returns once it has finished.
func (c *Controller) Cancel() {
	c.mu.Lock()
	dropped := c.pending != nil
	c.disarmLocked()
	c.pending = nil
	c.mu.Unlock()

	c.saveMu.Lock()
	c.saveMu.Unlock() //nolint:staticcheck // waits for an in-flight save

	if dropped {
		c.logger.Debug("autosave: pending save cancelled")
	}
}

// Stop detaches the controller from its source, drops pending work and
// ignores later schedules. Unlike Close it never saves. If a save is in
// flight, Stop returns once it has finished.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.closed = true
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	c.Cancel()
}

// FlushNow saves the pending snapshot immediately. It is a no-op when
// nothing is pending.
func (c *Controller) FlushNow(ctx context.Context) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	c.disarmLocked()
	a := c.pending
	c.pending = nil
	c.mu.Unlock()

	if a == nil {
		return nil
	}
	return c.save(ctx, *a)
}

// Close stops watching, flushes pending work and ignores later schedules.
// Calling Close again returns nil.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	return c.FlushNow(ctx)
}

func (c *Controller) fire(gen uint64) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	if gen != c.gen || c.pending == nil {
		c.mu.Unlock()
		return
	}
	a := c.pending
	c.pending = nil
	c.timer = nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.saveTimeout)
	defer cancel()
	_ = c.save(ctx, *a)
}

// save must be called with saveMu held.
func (c *Controller) save(ctx context.Context, a models.Account) error {
	start := time.Now()
	err := c.saver.SaveAccount(ctx, a)

	c.mu.Lock()
	c.saves++
	c.lastErr = err
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("autosave: save failed",
			slog.String("account", a.Name),
			slog.String("error", err.Error()))
	} else {
		c.logger.Debug("autosave: saved",
			slog.String("account", a.Name),
			slog.Duration("took", time.Since(start)))
	}
	if c.onSaved != nil {
		c.onSaved(a, err)
	}
	return err
}

func (c *Controller) disarmLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
