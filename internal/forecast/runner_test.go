package forecast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/tortoise/internal/models"
	"github.com/starford/tortoise/internal/testutil"
)

type fakeBackend struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (f *fakeBackend) CashFlows(_ context.Context, name string) ([]models.CashFlow, error) {
	return testutil.SampleAccount(name).CashFlows, nil
}

func (f *fakeBackend) SimulateAccount(_ context.Context, name, _ string) (models.SimulationResult, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	if f.err != nil {
		return models.SimulationResult{}, f.err
	}
	return testutil.SampleResult(testutil.SampleAccount(name)), nil
}

func (f *fakeBackend) SimulateScenario(_ context.Context, names []string) (*models.ScenarioResult, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	if f.err != nil {
		return nil, f.err
	}
	out := models.NewScenarioResult()
	for _, n := range names {
		out.Set(n, testutil.SampleResult(testutil.SampleAccount(n)))
	}
	return out, nil
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAccountView(t *testing.T) {
	r := NewRunner(&fakeBackend{}, quiet(), WithMinVisible(0))
	v, err := r.Account(context.Background(), AccountRequest{Name: "Savings"})
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if v.RunID == "" {
		t.Error("missing run id")
	}
	if len(v.Balances.Rows) != 3 || !reflect.DeepEqual(v.Balances.Names, []string{"Invested", "Uninvested"}) {
		t.Errorf("balances = %+v", v.Balances)
	}
	if !reflect.DeepEqual(v.CashFlows.Names, []string{"Salary", "Rent"}) {
		t.Errorf("cash-flow series = %v", v.CashFlows.Names)
	}
	if len(v.Panel) != 2 || v.Panel[0].Name != "Salary" || v.Panel[0].Score != 100 {
		t.Errorf("panel = %+v", v.Panel)
	}
}

func TestScenarioView(t *testing.T) {
	r := NewRunner(&fakeBackend{}, quiet(), WithMinVisible(0))
	v, err := r.Scenario(context.Background(), []string{"B", "A"})
	if err != nil {
		t.Fatalf("Scenario: %v", err)
	}
	if !reflect.DeepEqual(v.Accounts, []string{"B", "A"}) {
		t.Errorf("accounts = %v", v.Accounts)
	}
	if !reflect.DeepEqual(v.Chart(true).Max, v.Chart(false).Max) {
		t.Error("invested and uninvested maxima differ")
	}
	inv, _ := v.Chart(true).Rows[0].Value("A")
	un, _ := v.Chart(false).Rows[0].Value("A")
	if inv != 2*un {
		t.Errorf("invested %v vs uninvested %v", inv, un)
	}
}

func TestConcurrentRequestsShareOneCall(t *testing.T) {
	be := &fakeBackend{delay: 100 * time.Millisecond}
	r := NewRunner(be, quiet(), WithMinVisible(0))

	var wg sync.WaitGroup
	ids := make([]string, 5)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := r.Account(context.Background(), AccountRequest{Name: "A"})
			if err != nil {
				t.Errorf("Account: %v", err)
				return
			}
			ids[i] = v.RunID
		}(i)
	}

	time.Sleep(30 * time.Millisecond)
	if !r.InFlight() {
		t.Error("InFlight = false during run")
	}
	wg.Wait()

	if n := be.calls.Load(); n != 1 {
		t.Errorf("backend calls = %d, want 1", n)
	}
	if r.InFlight() {
		t.Error("InFlight = true after runs")
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Errorf("run id %q reused", id)
		}
		seen[id] = true
	}
}

func TestShortRunPaddedToMinVisible(t *testing.T) {
	r := NewRunner(&fakeBackend{}, quiet(), WithMinVisible(120*time.Millisecond))
	start := time.Now()
	if _, err := r.Account(context.Background(), AccountRequest{Name: "A"}); err != nil {
		t.Fatal(err)
	}
	if took := time.Since(start); took < 120*time.Millisecond {
		t.Errorf("took %v, want at least 120ms", took)
	}
}

func TestLongRunNotDelayed(t *testing.T) {
	r := NewRunner(&fakeBackend{delay: 350 * time.Millisecond}, quiet(), WithMinVisible(300*time.Millisecond))
	start := time.Now()
	if _, err := r.Scenario(context.Background(), []string{"A"}); err != nil {
		t.Fatal(err)
	}
	if took := time.Since(start); took >= 600*time.Millisecond {
		t.Errorf("took %v; padding should not add to a long run", took)
	}
}

func TestFailureReportedAndPadded(t *testing.T) {
	boom := errors.New("engine down")
	var mu sync.Mutex
	var events []Event
	r := NewRunner(&fakeBackend{err: boom}, quiet(),
		WithMinVisible(60*time.Millisecond),
		WithObserver(func(ev Event) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		}))

	start := time.Now()
	_, err := r.Account(context.Background(), AccountRequest{Name: "A"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if time.Since(start) < 60*time.Millisecond {
		t.Error("failed run returned before the minimum visible duration")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Phase != PhaseStarted || events[1].Phase != PhaseFinished {
		t.Errorf("phases = %s, %s", events[0].Phase, events[1].Phase)
	}
	if events[0].RunID != events[1].RunID || events[1].Error == "" {
		t.Errorf("events = %+v", events)
	}
}

func TestCallerCancellation(t *testing.T) {
	r := NewRunner(&fakeBackend{delay: 300 * time.Millisecond}, quiet(), WithMinVisible(0))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := r.Account(ctx, AccountRequest{Name: "A"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}
