package api

import (
	"encoding/json"
	"math"

	"github.com/starford/tortoise/internal/catalog"
	"github.com/starford/tortoise/internal/magnitude"
	"github.com/starford/tortoise/internal/models"
	"github.com/starford/tortoise/internal/series"
)

// CashFlowDTO is a cash flow as served to clients. Non-finite numbers are
// served as null and reported in the account's issues.
type CashFlowDTO struct {
	Name      *string          `json:"name" example:"Salary"`
	Amount    *float64         `json:"amount" example:"3000"`
	Frequency models.Frequency `json:"frequency" example:"MonthStart"`
	Label     string           `json:"frequency_label" example:"Monthly (SOM)"`
	StartDate *string          `json:"start_date" example:"2024-01-01"`
	EndDate   *string          `json:"end_date"`
	TaxRate   *float64         `json:"tax_rate" example:"0.2"`
	Tags      []string         `json:"tags"` // null and [] are kept apart
}

// AccountDTO is an account as served to clients.
type AccountDTO struct {
	Name      string        `json:"name" example:"Savings"`
	Balance   *float64      `json:"balance" example:"1000"`
	StartDate string        `json:"start_date" example:"2024-01-01"`
	EndDate   string        `json:"end_date" example:"2030-12-31"`
	CashFlows []CashFlowDTO `json:"cash_flows"`
}

func finitePtr(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

func newCashFlowDTO(cf models.CashFlow) CashFlowDTO {
	out := CashFlowDTO{
		Name:      cf.Name,
		Amount:    finitePtr(cf.Amount),
		Frequency: cf.Frequency,
		Label:     cf.Frequency.Label(),
		StartDate: cf.StartDate,
		EndDate:   cf.EndDate,
		Tags:      cf.Tags,
	}
	if cf.TaxRate != nil {
		out.TaxRate = finitePtr(*cf.TaxRate)
	}
	return out
}

func newCashFlowDTOs(cfs []models.CashFlow) []CashFlowDTO {
	out := make([]CashFlowDTO, len(cfs))
	for i, cf := range cfs {
		out[i] = newCashFlowDTO(cf)
	}
	return out
}

func newAccountDTO(a models.Account) AccountDTO {
	return AccountDTO{
		Name:      a.Name,
		Balance:   finitePtr(a.Balance),
		StartDate: a.StartDate,
		EndDate:   a.EndDate,
		CashFlows: newCashFlowDTOs(a.CashFlows),
	}
}

// EditorState is the response of every editor endpoint.
type EditorState struct {
	Account   AccountDTO     `json:"account"`
	Issues    []models.Issue `json:"issues"`
	Version   uint64         `json:"version"`
	Pending   bool           `json:"pending"`
	SaveError string         `json:"save_error,omitempty"`
}

// AccountListResponse wraps account summaries.
type AccountListResponse struct {
	Accounts []catalog.AccountRow `json:"accounts"`
	Tags     []catalog.TagCount   `json:"tags"`
}

// MagnitudesResponse wraps the cash-flow magnitude panel.
type MagnitudesResponse struct {
	Account string          `json:"account"`
	Bars    []magnitude.Bar `json:"bars"`
}

// SelectionResponse describes the scenario selection.
type SelectionResponse struct {
	Accounts []string `json:"accounts"`
	Query    string   `json:"query"`
}

// ScenarioResponse is one scenario forecast with the requested chart.
type ScenarioResponse struct {
	RunID    string                 `json:"run_id"`
	Accounts []string               `json:"accounts"`
	Invested bool                   `json:"invested"`
	Result   *models.ScenarioResult `json:"result"`
	Chart    series.Table           `json:"chart"`
}

// AccountPatch is the body of PATCH /editor. Absent fields are left alone.
type AccountPatch struct {
	Name      *string  `json:"name"`
	StartDate *string  `json:"start_date"`
	EndDate   *string  `json:"end_date"`
	Balance   *float64 `json:"balance"`
}

// optionalDate tells an absent field apart from an explicit null.
type optionalDate struct {
	Set   bool
	Value *string
}

func (d *optionalDate) UnmarshalJSON(data []byte) error {
	d.Set = true
	if string(data) == "null" {
		d.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	d.Value = &s
	return nil
}

// CashFlowPatch is the body of PATCH /editor/cash-flows/{index}. Absent
// fields are left alone; start_date and end_date may be null to clear them.
type CashFlowPatch struct {
	Name      *string           `json:"name"`
	Amount    *float64          `json:"amount"`
	Frequency *models.Frequency `json:"frequency"`
	StartDate optionalDate      `json:"start_date"`
	EndDate   optionalDate      `json:"end_date"`
	TaxRate   *float64          `json:"tax_rate"`
	Tags      []string          `json:"tags"`
}

// TagsRequest is the body of PUT /editor/cash-flows/{index}/tags.
type TagsRequest struct {
	Tags []string `json:"tags"`
}
