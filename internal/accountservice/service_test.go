package accountservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/starford/tortoise/internal/apperr"
	"github.com/starford/tortoise/internal/models"
	"github.com/starford/tortoise/internal/testutil"
)

func setup(t *testing.T) (*Service, *testutil.FakeSimulator) {
	t.Helper()
	_, store := testutil.TestStore(t)
	db := testutil.TestDB(t)
	sim := &testutil.FakeSimulator{}
	return New(store, db, sim, slog.New(slog.NewTextHandler(io.Discard, nil))), sim
}

func TestSaveListGet(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	for _, n := range []string{"Savings", "Checking"} {
		if err := svc.SaveAccount(ctx, testutil.SampleAccount(n)); err != nil {
			t.Fatalf("SaveAccount(%s): %v", n, err)
		}
	}

	names, err := svc.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"Checking", "Savings"}) {
		t.Errorf("names = %v", names)
	}

	details, _ := svc.ListAccountsDetail(ctx)
	if len(details) != 2 || len(details[1].CashFlows) != 2 {
		t.Errorf("details = %+v", details)
	}

	a, err := svc.GetAccount(ctx, "Savings")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if a.Balance != 1000 {
		t.Errorf("balance = %v", a.Balance)
	}

	cfs, _ := svc.CashFlows(ctx, "Savings")
	if len(cfs) != 2 || *cfs[0].Name != "Salary" {
		t.Errorf("cash flows = %+v", cfs)
	}

	housing, _ := svc.Summaries(ctx, "housing")
	if len(housing) != 2 {
		t.Errorf("housing summaries = %d", len(housing))
	}
}

func TestSaveInvalidNameIsRemoteFailure(t *testing.T) {
	svc, _ := setup(t)
	err := svc.SaveAccount(context.Background(), models.Account{Name: "../x"})
	if !errors.Is(err, apperr.ErrRemoteCall) || !errors.Is(err, apperr.ErrInvalidName) {
		t.Errorf("err = %v", err)
	}
}

func TestCreateAccount(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	if err := svc.CreateAccount(ctx, models.Account{Name: "New"}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := svc.CreateAccount(ctx, models.Account{Name: "New"}); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate err = %v", err)
	}
	a, _ := svc.GetAccount(ctx, "New")
	if a.CashFlows == nil {
		t.Error("created account should have an empty cash-flow list")
	}
}

func TestAddCashFlow(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	_ = svc.SaveAccount(ctx, testutil.SampleAccount("A"))

	a, err := svc.AddCashFlow(ctx, "A", models.DefaultCashFlow())
	if err != nil {
		t.Fatalf("AddCashFlow: %v", err)
	}
	if len(a.CashFlows) != 3 {
		t.Errorf("cash flows = %d", len(a.CashFlows))
	}
	stored, _ := svc.GetAccount(ctx, "A")
	if len(stored.CashFlows) != 3 {
		t.Errorf("stored cash flows = %d", len(stored.CashFlows))
	}
	if _, err := svc.AddCashFlow(ctx, "missing", models.DefaultCashFlow()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestDeleteAccount(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	_ = svc.SaveAccount(ctx, testutil.SampleAccount("gone"))
	if err := svc.DeleteAccount(ctx, "gone"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	names, _ := svc.ListAccounts(ctx)
	if len(names) != 0 {
		t.Errorf("names = %v", names)
	}
	if err := svc.DeleteAccount(ctx, "gone"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestSimulateAccount(t *testing.T) {
	svc, sim := setup(t)
	ctx := context.Background()
	_ = svc.SaveAccount(ctx, testutil.SampleAccount("A"))

	res, err := svc.SimulateAccount(ctx, "A", "growth")
	if err != nil {
		t.Fatalf("SimulateAccount: %v", err)
	}
	if len(res.Balances) != 3 {
		t.Errorf("balances = %d", len(res.Balances))
	}
	if sim.Portfolio != "growth" {
		t.Errorf("portfolio = %q", sim.Portfolio)
	}

	sim.Err = apperr.Remote("engine: simulate", errors.New("down"))
	if _, err := svc.SimulateAccount(ctx, "A", ""); !errors.Is(err, apperr.ErrRemoteCall) {
		t.Errorf("err = %v", err)
	}
}

func TestSimulateScenarioKeepsRequestOrder(t *testing.T) {
	svc, sim := setup(t)
	ctx := context.Background()
	for _, n := range []string{"A", "B", "C"} {
		_ = svc.SaveAccount(ctx, testutil.SampleAccount(n))
	}

	res, err := svc.SimulateScenario(ctx, []string{"C", "A", "C"})
	if err != nil {
		t.Fatalf("SimulateScenario: %v", err)
	}
	if !reflect.DeepEqual(res.Names(), []string{"C", "A"}) {
		t.Errorf("names = %v", res.Names())
	}
	if len(sim.Last()) != 2 {
		t.Errorf("engine got %d accounts", len(sim.Last()))
	}

	empty, err := svc.SimulateScenario(ctx, nil)
	if err != nil || empty.Len() != 0 {
		t.Errorf("empty scenario = %v, %v", empty, err)
	}
	if sim.Calls() != 1 {
		t.Errorf("engine calls = %d, want 1", sim.Calls())
	}
}

func TestListPortfolios(t *testing.T) {
	svc, _ := setup(t)
	got, err := svc.ListPortfolios(context.Background())
	if err != nil || len(got) != 0 {
		t.Errorf("portfolios = %v, %v", got, err)
	}
}
