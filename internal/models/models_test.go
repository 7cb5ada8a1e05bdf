package models

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

func sampleAccount() Account {
	return Account{
		Name:      "checking",
		Balance:   1200.5,
		StartDate: "2024-01-01",
		EndDate:   "2030-12-31",
		CashFlows: []CashFlow{
			{Name: Ptr("salary"), Amount: 4000, Frequency: MonthStart, TaxRate: Ptr(0.25), Tags: []string{"income", "job"}},
			{Name: nil, Amount: -80, Frequency: "Weekly", StartDate: Ptr("2024-02-01"), Tags: nil},
			{Name: Ptr(""), Amount: -1500, Frequency: MonthEnd, Tags: []string{}},
		},
	}
}

func TestFrequencyLabel(t *testing.T) {
	cases := map[Frequency]string{
		Once:        "One time",
		MonthStart:  "Monthly (SOM)",
		MonthEnd:    "Monthly (EOM)",
		SemiMonthly: "Semi-monthly",
		Annually:    "Annually",
		"Weekly":    "Unknown",
	}
	for f, want := range cases {
		if got := f.Label(); got != want {
			t.Errorf("%q.Label() = %q, want %q", f, got, want)
		}
	}
	if Frequency("Weekly").Valid() {
		t.Error("unknown frequency reported valid")
	}
}

func TestJSONRoundTripPreservesNullsAndOrder(t *testing.T) {
	in := sampleAccount()
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out Account
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
	if out.CashFlows[1].Tags != nil {
		t.Error("null tags decoded as non-nil")
	}
	if out.CashFlows[2].Tags == nil {
		t.Error("empty tags decoded as nil")
	}
	if out.CashFlows[1].Frequency != "Weekly" {
		t.Errorf("unknown frequency coerced to %q", out.CashFlows[1].Frequency)
	}
}

func TestCloneIsDeep(t *testing.T) {
	in := sampleAccount()
	cp := in.Clone()
	*cp.CashFlows[0].Name = "changed"
	cp.CashFlows[0].Tags[0] = "changed"
	*cp.CashFlows[0].TaxRate = 0.9

	if *in.CashFlows[0].Name != "salary" || in.CashFlows[0].Tags[0] != "income" || *in.CashFlows[0].TaxRate != 0.25 {
		t.Errorf("clone aliases original: %+v", in.CashFlows[0])
	}
	if cp.CashFlows[1].Tags != nil || cp.CashFlows[2].Tags == nil {
		t.Error("clone does not preserve nil vs empty tags")
	}
}

func TestIssues(t *testing.T) {
	a := sampleAccount()
	if got := Issues(a); len(got) != 0 {
		t.Fatalf("valid account has issues: %+v", got)
	}

	a.Balance = math.Inf(1)
	a.CashFlows[0].Amount = math.NaN()
	a.CashFlows[2].TaxRate = Ptr(1.5)

	got := Issues(a)
	want := []Issue{
		{Field: "balance", Message: "must be a finite number"},
		{Field: "cash_flows.0.amount", Message: "must be a finite number"},
		{Field: "cash_flows.2.tax_rate", Message: "must be between 0 and 1"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Issues = %+v, want %+v", got, want)
	}
}

func TestAccountTags(t *testing.T) {
	a := sampleAccount()
	a.CashFlows[2].Tags = []string{"job", "rent"}
	got := a.Tags()
	want := []string{"income", "job", "rent"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tags = %v, want %v", got, want)
	}
}

func TestScenarioResultKeepsOrder(t *testing.T) {
	r := NewScenarioResult()
	r.Set("zeta", SimulationResult{Balances: []AccountBalance{{Date: "2024-01-01", AccountName: "zeta", Balance: 1}}})
	r.Set("alpha", SimulationResult{})
	r.Set("mid", SimulationResult{})

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded ScenarioResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := decoded.Names(); !reflect.DeepEqual(got, []string{"zeta", "alpha", "mid"}) {
		t.Errorf("Names = %v", got)
	}
	res, ok := decoded.Get("zeta")
	if !ok || len(res.Balances) != 1 || res.Balances[0].Balance != 1 {
		t.Errorf("zeta = %+v, %v", res, ok)
	}
}
