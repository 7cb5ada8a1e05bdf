package autosave

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/starford/tortoise/internal/editor"
	"github.com/starford/tortoise/internal/models"
)

const window = 60 * time.Millisecond

type recordingSaver struct {
	mu    sync.Mutex
	saved []models.Account
	err   error
	block chan struct{}
	start chan struct{}
}

func (r *recordingSaver) SaveAccount(_ context.Context, a models.Account) error {
	if r.start != nil {
		r.start <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, a)
	return r.err
}

func (r *recordingSaver) calls() []models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Account(nil), r.saved...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestBurstProducesSingleSave(t *testing.T) {
	saver := &recordingSaver{}
	store := editor.New()
	c := New(saver, WithWindow(window), WithLogger(quietLogger()))
	c.Watch(store)
	defer c.Close(context.Background())

	for i := 0; i < 10; i++ {
		store.SetName(fmt.Sprintf("n%d", i))
	}

	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return len(saver.calls()) == 1
	}, "expected one save after quiescence")

	time.Sleep(3 * window)
	calls := saver.calls()
	if len(calls) != 1 {
		t.Fatalf("saves = %d, want 1", len(calls))
	}
	if calls[0].Name != "n9" {
		t.Errorf("saved name = %q, want n9", calls[0].Name)
	}
}

func TestCloseFlushesPendingOnce(t *testing.T) {
	saver := &recordingSaver{}
	store := editor.New()
	c := New(saver, WithWindow(time.Hour), WithLogger(quietLogger()))
	c.Watch(store)

	store.SetName("draft")
	store.SetBalance(42)

	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	// Edits after teardown are not persisted.
	store.SetName("after")
	time.Sleep(20 * time.Millisecond)

	calls := saver.calls()
	if len(calls) != 1 {
		t.Fatalf("saves = %d, want 1", len(calls))
	}
	if calls[0].Name != "draft" || calls[0].Balance != 42 {
		t.Errorf("saved = %+v", calls[0])
	}
	if c.Pending() {
		t.Error("pending after close")
	}
}

func TestCancelDropsPending(t *testing.T) {
	saver := &recordingSaver{}
	c := New(saver, WithWindow(window), WithLogger(quietLogger()))

	c.Schedule(models.Account{Name: "doomed"})
	c.Cancel()
	time.Sleep(3 * window)

	if n := len(saver.calls()); n != 0 {
		t.Fatalf("saves after cancel = %d, want 0", n)
	}
	if err := c.FlushNow(context.Background()); err != nil {
		t.Fatalf("FlushNow: %v", err)
	}
	if n := len(saver.calls()); n != 0 {
		t.Fatalf("flush after cancel saved %d times", n)
	}

	// The controller stays usable after a cancel.
	c.Schedule(models.Account{Name: "next"})
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return len(saver.calls()) == 1
	}, "save after cancel never fired")
}

func TestSaveFailureIsReportedNotRetried(t *testing.T) {
	boom := errors.New("disk full")
	saver := &recordingSaver{err: boom}

	var mu sync.Mutex
	var hookErr error
	c := New(saver,
		WithWindow(window),
		WithLogger(quietLogger()),
		WithOnSaved(func(_ models.Account, err error) {
			mu.Lock()
			hookErr = err
			mu.Unlock()
		}),
	)

	c.Schedule(models.Account{Name: "a"})
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return c.Saves() == 1
	}, "save never attempted")
	time.Sleep(3 * window)

	if c.Saves() != 1 {
		t.Errorf("save attempts = %d, want 1", c.Saves())
	}
	if !errors.Is(c.LastError(), boom) {
		t.Errorf("LastError = %v", c.LastError())
	}
	mu.Lock()
	defer mu.Unlock()
	if !errors.Is(hookErr, boom) {
		t.Errorf("hook err = %v", hookErr)
	}
}

func TestCancelWaitsForInFlightSave(t *testing.T) {
	saver := &recordingSaver{block: make(chan struct{}), start: make(chan struct{}, 1)}
	c := New(saver, WithWindow(10*time.Millisecond), WithLogger(quietLogger()))

	c.Schedule(models.Account{Name: "racing"})
	select {
	case <-saver.start:
	case <-time.After(2 * time.Second):
		t.Fatal("save never started")
	}

	done := make(chan struct{})
	go func() {
		c.Cancel()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Cancel returned while a save was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(saver.block)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Cancel did not return after the save finished")
	}
}

func TestFlushNowWithoutPending(t *testing.T) {
	saver := &recordingSaver{}
	c := New(saver, WithLogger(quietLogger()))
	if err := c.FlushNow(context.Background()); err != nil {
		t.Fatalf("FlushNow: %v", err)
	}
	if c.Saves() != 0 {
		t.Errorf("saves = %d", c.Saves())
	}
}

func TestFlushNowUsesLatestSnapshot(t *testing.T) {
	saver := &recordingSaver{}
	c := New(saver, WithWindow(time.Hour), WithLogger(quietLogger()))
	c.Schedule(models.Account{Name: "v1"})
	c.Schedule(models.Account{Name: "v2"})

	if err := c.FlushNow(context.Background()); err != nil {
		t.Fatalf("FlushNow: %v", err)
	}
	calls := saver.calls()
	if len(calls) != 1 || calls[0].Name != "v2" {
		t.Errorf("saves = %+v", calls)
	}
}

func TestStopNeverSavesAgain(t *testing.T) {
	saver := &recordingSaver{}
	store := editor.New()
	c := New(saver, WithWindow(window), WithLogger(quietLogger()))
	c.Watch(store)

	store.SetName("pending")
	c.Stop()
	store.SetName("after stop")
	c.Schedule(models.Account{Name: "direct"})

	if c.Pending() {
		t.Error("Pending = true after Stop")
	}
	if err := c.FlushNow(context.Background()); err != nil {
		t.Errorf("FlushNow: %v", err)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Errorf("Close: %v", err)
	}
	time.Sleep(3 * window)
	if calls := saver.calls(); len(calls) != 0 {
		t.Errorf("saves after Stop = %+v", calls)
	}
}
