package format

import (
	"math"
	"testing"
)

func TestValue(t *testing.T) {
	cases := []struct {
		in   float64
		anon bool
		want string
	}{
		{0, false, "$0"},
		{12.34, false, "$12.3"},
		{-999, false, "$999"},
		{1500, false, "$1.5 K"},
		{-2_000, false, "$2 K"},
		{123_456_789, false, "$123.5 M"},
		{4_200_000_000, false, "$4.2 B"},
		{1_234_000_000_000, false, "$1,234 B"},
		{1_234_000_000_000, true, "$X,XXX B"},
		{1500, true, "$X.X K"},
		{math.NaN(), false, "$-"},
	}
	for _, tc := range cases {
		if got := Value(tc.in, tc.anon); got != tc.want {
			t.Errorf("Value(%v, %v) = %q, want %q", tc.in, tc.anon, got, tc.want)
		}
	}
}

func TestCurrency(t *testing.T) {
	got, err := Currency(1234.5, "USD")
	if err != nil {
		t.Fatal(err)
	}
	if got != "$1,234.50" {
		t.Errorf("got %q", got)
	}

	got, err = Currency(-12, "USD")
	if err != nil {
		t.Fatal(err)
	}
	if got != "-$12.00" {
		t.Errorf("got %q", got)
	}

	if _, err := Currency(1, "???"); err == nil {
		t.Error("expected error for unknown currency")
	}
}
