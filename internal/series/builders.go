package series

import "github.com/starford/tortoise/internal/models"

// Series names used by AccountBalances.
const (
	Invested   = "Invested"
	Uninvested = "Uninvested"
)

// ScenarioBalances aligns one series per account of a scenario, in request
// order. invested selects which balances are plotted; the other view feeds
// the maxima so toggling does not rescale the axis.
func ScenarioBalances(result *models.ScenarioResult, invested bool) Table {
	var all []Series
	result.Each(func(name string, res models.SimulationResult) {
		shown, other := res.Balances, res.UninvestedBalances
		if !invested {
			shown, other = other, shown
		}
		all = append(all, Series{
			Name:        name,
			Points:      balancePoints(shown),
			Counterpart: balancePoints(other),
		})
	})
	return Align(all...).SortByDate()
}

// AccountBalances aligns the invested and uninvested balances of one account.
func AccountBalances(result models.SimulationResult) Table {
	return Align(
		Series{Name: Invested, Points: balancePoints(result.Balances)},
		Series{Name: Uninvested, Points: balancePoints(result.UninvestedBalances)},
	).SortByDate()
}

// CashFlowPayments aligns payments into one series per named cash flow.
// Payments without a date, without a name or with a zero amount are skipped.
func CashFlowPayments(result models.SimulationResult) Table {
	byName := make(map[string]int)
	var all []Series
	for _, p := range result.Payments {
		if p.Date == "" || p.Amount == 0 || p.CashFlow.Name == nil || *p.CashFlow.Name == "" {
			continue
		}
		name := *p.CashFlow.Name
		i, ok := byName[name]
		if !ok {
			i = len(all)
			byName[name] = i
			all = append(all, Series{Name: name})
		}
		all[i].Points = append(all[i].Points, Point{Date: p.Date, Value: p.Amount})
	}
	return Align(all...).SortByDate()
}

func balancePoints(balances []models.AccountBalance) []Point {
	out := make([]Point, 0, len(balances))
	for _, b := range balances {
		out = append(out, Point{Date: b.Date, Value: b.Balance})
	}
	return out
}
