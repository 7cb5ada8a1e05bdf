package models

import (
	"errors"
	"math"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	errNotFinite  = validation.NewError("validation_not_finite", "must be a finite number")
	errRateBounds = validation.NewError("validation_rate_bounds", "must be between 0 and 1")
)

// Issue flags a field whose stored value is not acceptable for display or
// simulation. Issues never block a write.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks the numeric fields of the cash flow.
func (c CashFlow) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Amount, validation.By(finite)),
		validation.Field(&c.TaxRate, validation.By(finite), validation.By(unitInterval)),
	)
}

// Validate checks the numeric fields of the account and of every cash flow.
func (a Account) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Balance, validation.By(finite)),
		validation.Field(&a.CashFlows),
	)
}

// Issues flattens the validation errors of a into dotted field paths such as
// "cash_flows.2.tax_rate", sorted by path.
func Issues(a Account) []Issue {
	out := []Issue{}
	err := a.Validate()
	if err == nil {
		return out
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return append(out, Issue{Field: "", Message: err.Error()})
	}
	flatten("", errs, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func flatten(prefix string, errs validation.Errors, out *[]Issue) {
	for key, err := range errs {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		var nested validation.Errors
		if errors.As(err, &nested) {
			flatten(path, nested, out)
			continue
		}
		*out = append(*out, Issue{Field: path, Message: err.Error()})
	}
}

func finite(value interface{}) error {
	v, ok := floatValue(value)
	if !ok {
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errNotFinite
	}
	return nil
}

func unitInterval(value interface{}) error {
	v, ok := floatValue(value)
	if !ok || math.IsNaN(v) {
		return nil
	}
	if v < 0 || v > 1 {
		return errRateBounds
	}
	return nil
}

// floatValue unwraps float64 and *float64; a nil pointer has nothing to check.
func floatValue(value interface{}) (float64, bool) {
	v, isNil := validation.Indirect(value)
	if isNil {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
