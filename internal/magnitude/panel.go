package magnitude

import (
	"math"
	"sort"

	"github.com/starford/tortoise/internal/format"
	"github.com/starford/tortoise/internal/models"
)

// Bar is one row of the cash-flow side panel.
type Bar struct {
	Name      string           `json:"name"`
	Amount    float64          `json:"amount"`
	Frequency models.Frequency `json:"frequency"`
	Score     float64          `json:"score"`
	Label     string           `json:"label"`
	Tooltip   string           `json:"tooltip"`
}

// Panel returns the cash flows as scored bars, largest magnitude first.
// Ties keep their original order.
func Panel(cashFlows []models.CashFlow, anonymize bool) []Bar {
	amounts := make([]float64, len(cashFlows))
	for i, cf := range cashFlows {
		amounts[i] = cf.Amount
	}
	max := MaxMagnitude(amounts)

	bars := make([]Bar, 0, len(cashFlows))
	for _, cf := range cashFlows {
		label := format.Value(cf.Amount, anonymize)
		bars = append(bars, Bar{
			Name:      cf.DisplayName(),
			Amount:    cf.Amount,
			Frequency: cf.Frequency,
			Score:     Score(cf.Amount, max),
			Label:     label,
			Tooltip:   label + " | " + cf.Frequency.Label(),
		})
	}
	sort.SliceStable(bars, func(i, j int) bool {
		return magnitudeOf(bars[i].Amount) > magnitudeOf(bars[j].Amount)
	})
	return bars
}

func magnitudeOf(x float64) float64 {
	if math.IsNaN(x) {
		return -1
	}
	return math.Abs(x)
}
