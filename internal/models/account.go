// Package models defines the domain types for Tortoise.
package models

import "slices"

// CashFlow is a recurring or one-time amount attached to an account.
//
// Pointer and slice fields distinguish "absent" (nil, encoded as null) from a
// zero value; that distinction is preserved by Clone and by JSON round trips.
type CashFlow struct {
	Name      *string   `json:"name" yaml:"name"`
	Amount    float64   `json:"amount" yaml:"amount"`
	Frequency Frequency `json:"frequency" yaml:"frequency"`
	StartDate *string   `json:"start_date" yaml:"start_date"`
	EndDate   *string   `json:"end_date" yaml:"end_date"`
	TaxRate   *float64  `json:"tax_rate" yaml:"tax_rate"`
	Tags      []string  `json:"tags" yaml:"tags"`
}

// Account is a named financial scenario: a starting balance, a date range and
// an ordered list of cash flows. The position of a cash flow in CashFlows is
// how editors address it.
type Account struct {
	Name      string     `json:"name" yaml:"name"`
	Balance   float64    `json:"balance" yaml:"balance"`
	StartDate string     `json:"start_date" yaml:"start_date"`
	EndDate   string     `json:"end_date" yaml:"end_date"`
	CashFlows []CashFlow `json:"cash_flows" yaml:"cash_flows"`
}

// NewAccount returns the empty account shape.
func NewAccount() Account {
	return Account{CashFlows: []CashFlow{}}
}

// DefaultCashFlow returns the cash flow inserted when an editor adds an entry
// at a position.
func DefaultCashFlow() CashFlow {
	return CashFlow{
		Amount:    0,
		Frequency: Annually,
		TaxRate:   Ptr(0.0),
	}
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// Clone returns a deep copy of the cash flow.
func (c CashFlow) Clone() CashFlow {
	out := c
	out.Name = clonePtr(c.Name)
	out.StartDate = clonePtr(c.StartDate)
	out.EndDate = clonePtr(c.EndDate)
	out.TaxRate = clonePtr(c.TaxRate)
	out.Tags = slices.Clone(c.Tags)
	return out
}

// DisplayName returns the cash-flow name or an empty string when unnamed.
func (c CashFlow) DisplayName() string {
	if c.Name == nil {
		return ""
	}
	return *c.Name
}

// HasTag reports whether tag is attached to the cash flow.
func (c CashFlow) HasTag(tag string) bool {
	return slices.Contains(c.Tags, tag)
}

// Clone returns a deep copy of the account.
func (a Account) Clone() Account {
	out := a
	if a.CashFlows != nil {
		out.CashFlows = make([]CashFlow, len(a.CashFlows))
		for i, cf := range a.CashFlows {
			out.CashFlows[i] = cf.Clone()
		}
	}
	return out
}

// Tags returns the distinct tags used by the account's cash flows in
// first-seen order.
func (a Account) Tags() []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, cf := range a.CashFlows {
		for _, t := range cf.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
