package models

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// AccountBalance is one point of a simulated balance series.
type AccountBalance struct {
	Date        string  `json:"date"`
	AccountName string  `json:"account_name"`
	Balance     float64 `json:"balance"`
}

// Payment is a single cash-flow occurrence produced by the engine.
type Payment struct {
	CashFlow CashFlow `json:"cash_flow"`
	Date     string   `json:"date"`
	Amount   float64  `json:"amount"`
}

// SimulationResult is the engine projection for one account.
type SimulationResult struct {
	Balances           []AccountBalance `json:"balances"`
	UninvestedBalances []AccountBalance `json:"uninvested_balances"`
	Payments           []Payment        `json:"payments"`
}

// ScenarioResult maps account names to their simulation results. Iteration
// follows insertion order, which is the order accounts were requested in, and
// the JSON encoding keeps that order.
type ScenarioResult struct {
	entries *orderedmap.OrderedMap[string, SimulationResult]
}

// NewScenarioResult returns an empty scenario result.
func NewScenarioResult() *ScenarioResult {
	return &ScenarioResult{entries: orderedmap.New[string, SimulationResult]()}
}

// Set stores the result for name. Re-setting a name keeps its original position.
func (r *ScenarioResult) Set(name string, res SimulationResult) {
	if r.entries == nil {
		r.entries = orderedmap.New[string, SimulationResult]()
	}
	r.entries.Set(name, res)
}

// Get returns the result for name.
func (r *ScenarioResult) Get(name string) (SimulationResult, bool) {
	if r == nil || r.entries == nil {
		return SimulationResult{}, false
	}
	return r.entries.Get(name)
}

// Len returns the number of accounts in the result.
func (r *ScenarioResult) Len() int {
	if r == nil || r.entries == nil {
		return 0
	}
	return r.entries.Len()
}

// Names returns account names in insertion order.
func (r *ScenarioResult) Names() []string {
	out := make([]string, 0, r.Len())
	r.Each(func(name string, _ SimulationResult) {
		out = append(out, name)
	})
	return out
}

// Each calls fn for every entry in insertion order.
func (r *ScenarioResult) Each(fn func(name string, res SimulationResult)) {
	if r == nil || r.entries == nil {
		return
	}
	for p := r.entries.Oldest(); p != nil; p = p.Next() {
		fn(p.Key, p.Value)
	}
}

// MarshalJSON encodes the result as a JSON object in insertion order.
func (r *ScenarioResult) MarshalJSON() ([]byte, error) {
	if r == nil || r.entries == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.entries)
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the input.
func (r *ScenarioResult) UnmarshalJSON(data []byte) error {
	entries := orderedmap.New[string, SimulationResult]()
	if err := json.Unmarshal(data, entries); err != nil {
		return err
	}
	r.entries = entries
	return nil
}
