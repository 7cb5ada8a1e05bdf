package forecast

import (
	"github.com/starford/tortoise/internal/magnitude"
	"github.com/starford/tortoise/internal/models"
	"github.com/starford/tortoise/internal/series"
)

// AccountView is the chart-ready forecast of one account.
type AccountView struct {
	RunID     string                  `json:"run_id"`
	Name      string                  `json:"name"`
	Portfolio string                  `json:"portfolio,omitempty"`
	Result    models.SimulationResult `json:"result"`
	Balances  series.Table            `json:"balances"`
	CashFlows series.Table            `json:"cash_flows"`
	Panel     []magnitude.Bar         `json:"panel"`
}

func newAccountView(runID string, req AccountRequest, res models.SimulationResult, cfs []models.CashFlow) *AccountView {
	return &AccountView{
		RunID:     runID,
		Name:      req.Name,
		Portfolio: req.Portfolio,
		Result:    res,
		Balances:  series.AccountBalances(res),
		CashFlows: series.CashFlowPayments(res),
		Panel:     magnitude.Panel(cfs, req.Anonymize),
	}
}

// ScenarioView is the chart-ready forecast of several accounts. Invested and
// Uninvested share their maxima, so either can be shown on the same axis.
type ScenarioView struct {
	RunID      string                 `json:"run_id"`
	Accounts   []string               `json:"accounts"`
	Result     *models.ScenarioResult `json:"result"`
	Invested   series.Table           `json:"invested"`
	Uninvested series.Table           `json:"uninvested"`
}

func newScenarioView(runID string, res *models.ScenarioResult) *ScenarioView {
	return &ScenarioView{
		RunID:      runID,
		Accounts:   res.Names(),
		Result:     res,
		Invested:   series.ScenarioBalances(res, true),
		Uninvested: series.ScenarioBalances(res, false),
	}
}

// Chart returns the invested or uninvested balance table.
func (v *ScenarioView) Chart(invested bool) series.Table {
	if invested {
		return v.Invested
	}
	return v.Uninvested
}
