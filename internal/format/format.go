// Package format renders monetary values for charts and labels.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var scales = []struct {
	limit  float64
	div    int64
	suffix string
}{
	{1e3, 1, ""},
	{1e6, 1e3, " K"},
	{1e9, 1e6, " M"},
}

// Value renders the magnitude of x as a short dollar label such as
// "$1.5 K" or "$12.3 M", rounded to one decimal. The sign is dropped;
// callers show direction separately. With anonymize set every digit is
// replaced by X.
func Value(x float64, anonymize bool) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return "$-"
	}
	num := math.Abs(x)

	div, suffix := int64(1e9), " B"
	for _, s := range scales {
		if num < s.limit {
			div, suffix = s.div, s.suffix
			break
		}
	}

	d := decimal.NewFromFloat(num).Div(decimal.NewFromInt(div)).Round(1)
	out := "$" + group(d.String()) + suffix
	if anonymize {
		out = anonymized(out)
	}
	return out
}

// Currency renders x with the symbol and minor units of the ISO currency code.
func Currency(x float64, code string) (string, error) {
	cur := money.GetCurrency(code)
	if cur == nil {
		return "", fmt.Errorf("format: unknown currency %q", code)
	}
	factor := decimal.New(1, int32(cur.Fraction))
	minor := decimal.NewFromFloat(x).Mul(factor).Round(0).IntPart()
	return money.New(minor, cur.Code).Display(), nil
}

func group(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

func anonymized(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return 'X'
		}
		return r
	}, s)
}
