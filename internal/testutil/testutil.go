// Package testutil provides shared test helpers for setting up account
// directories, catalogs and a fake simulation engine.
package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/starford/tortoise/internal/catalog"
	"github.com/starford/tortoise/internal/models"
	"github.com/starford/tortoise/internal/storage"
)

// TestDB creates a temporary SQLite catalog that is automatically cleaned up.
func TestDB(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "tortoise-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary accounts directory with a storage.FS.
func TestStore(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// SampleAccount returns a small valid account.
func SampleAccount(name string) models.Account {
	salary, rent := "Salary", "Rent"
	return models.Account{
		Name:      name,
		Balance:   1000,
		StartDate: "2024-01-01",
		EndDate:   "2024-04-01",
		CashFlows: []models.CashFlow{
			{Name: &salary, Amount: 3000, Frequency: models.MonthStart, TaxRate: models.Ptr(0.2), Tags: []string{"income"}},
			{Name: &rent, Amount: -1200, Frequency: models.MonthEnd, TaxRate: models.Ptr(0.0), Tags: []string{"housing"}},
		},
	}
}

// SampleResult derives a deterministic simulation result from a: three
// monthly balances and one payment per named cash flow and month.
func SampleResult(a models.Account) models.SimulationResult {
	dates := []string{"2024-01-01", "2024-02-01", "2024-03-01"}
	var res models.SimulationResult
	bal := a.Balance
	for _, d := range dates {
		for _, cf := range a.CashFlows {
			bal += cf.Amount
			res.Payments = append(res.Payments, models.Payment{CashFlow: cf, Date: d, Amount: cf.Amount})
		}
		res.Balances = append(res.Balances, models.AccountBalance{Date: d, AccountName: a.Name, Balance: bal})
		res.UninvestedBalances = append(res.UninvestedBalances, models.AccountBalance{Date: d, AccountName: a.Name, Balance: bal / 2})
	}
	return res
}

// FakeSimulator stands in for the engine client.
type FakeSimulator struct {
	mu        sync.Mutex
	calls     int
	last      []models.Account
	Delay     time.Duration
	Err       error
	Portfolio string
}

// Simulate returns SampleResult for every account after Delay.
func (f *FakeSimulator) Simulate(ctx context.Context, accounts []models.Account, portfolio string) (*models.ScenarioResult, error) {
	f.mu.Lock()
	f.calls++
	f.last = accounts
	f.Portfolio = portfolio
	delay, err := f.Delay, f.Err
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	out := models.NewScenarioResult()
	for _, a := range accounts {
		out.Set(a.Name, SampleResult(a))
	}
	return out, nil
}

// Calls returns the number of Simulate calls.
func (f *FakeSimulator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Last returns the accounts passed to the latest call.
func (f *FakeSimulator) Last() []models.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// EngineServer serves the engine's simulate endpoint backed by sim.
func EngineServer(t *testing.T, sim *FakeSimulator) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/simulate" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Accounts  []models.Account `json:"accounts"`
			Portfolio *string          `json:"portfolio"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var portfolio string
		if req.Portfolio != nil {
			portfolio = *req.Portfolio
		}
		res, err := sim.Simulate(r.Context(), req.Accounts, portfolio)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": res})
	}))
	t.Cleanup(srv.Close)
	return srv
}
