package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tortoise/internal/accountservice"
	"github.com/starford/tortoise/internal/forecast"
	"github.com/starford/tortoise/internal/magnitude"
	"github.com/starford/tortoise/internal/selection"
	"github.com/starford/tortoise/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	accounts  *accountservice.Service
	workspace *session.Workspace
	selection *selection.Store
	runner    *forecast.Runner
	logger    *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(accounts *accountservice.Service, ws *session.Workspace, sel *selection.Store, runner *forecast.Runner, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{accounts: accounts, workspace: ws, selection: sel, runner: runner, logger: logger}
}

// param returns the decoded URL parameter key.
func param(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func queryBool(r *http.Request, key string, def bool) bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// ListAccounts handles GET /accounts.
//
//	@Summary		List account summaries with optional tag filter
//	@Tags			accounts
//	@Produce		json
//	@Param			tag	query		string	false	"Cash-flow tag"
//	@Success		200	{object}	AccountListResponse
//	@Router			/accounts [get]
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.accounts.Summaries(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		h.writeError(w, "list accounts", err)
		return
	}
	tags, err := h.accounts.Tags(r.Context())
	if err != nil {
		h.writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, AccountListResponse{Accounts: rows, Tags: tags})
}

// ListAccountsDetail handles GET /accounts/detail.
func (h *Handler) ListAccountsDetail(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAccountsDetail(r.Context())
	if err != nil {
		h.writeError(w, "list accounts detail", err)
		return
	}
	out := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		out[i] = newAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

// CashFlows handles GET /accounts/{name}/cash-flows.
func (h *Handler) CashFlows(w http.ResponseWriter, r *http.Request) {
	name := param(r, "name")
	cfs, err := h.accounts.CashFlows(r.Context(), name)
	if err != nil {
		h.writeError(w, "get cash flows", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": name, "cash_flows": newCashFlowDTOs(cfs)})
}

// Magnitudes handles GET /accounts/{name}/magnitudes.
//
//	@Summary		Cash flows scored by relative magnitude, largest first
//	@Tags			accounts
//	@Produce		json
//	@Param			name	path		string	true	"Account name"
//	@Param			anon	query		bool	false	"Mask digits in labels"
//	@Success		200		{object}	MagnitudesResponse
//	@Failure		404		{object}	errResponse
//	@Router			/accounts/{name}/magnitudes [get]
func (h *Handler) Magnitudes(w http.ResponseWriter, r *http.Request) {
	name := param(r, "name")
	cfs, err := h.accounts.CashFlows(r.Context(), name)
	if err != nil {
		h.writeError(w, "get magnitudes", err)
		return
	}
	writeJSON(w, http.StatusOK, MagnitudesResponse{
		Account: name,
		Bars:    magnitude.Panel(cfs, queryBool(r, "anon", false)),
	})
}

// DeleteAccount handles DELETE /accounts/{name}. Deleting the account that is
// open in the editor ends the edit session and drops its pending edits.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	name := param(r, "name")
	if err := h.workspace.DeleteAccount(r.Context(), name); err != nil {
		h.writeError(w, "delete account", err)
		return
	}
	h.selection.Remove(name)
	w.WriteHeader(http.StatusNoContent)
}

// ListPortfolios handles GET /portfolios.
func (h *Handler) ListPortfolios(w http.ResponseWriter, r *http.Request) {
	names, err := h.accounts.ListPortfolios(r.Context())
	if err != nil {
		h.writeError(w, "list portfolios", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"portfolios": names})
}

func (h *Handler) selectionResponse() SelectionResponse {
	names := h.selection.Selected()
	if names == nil {
		names = []string{}
	}
	return SelectionResponse{Accounts: names, Query: h.selection.Query()}
}

// GetSelection handles GET /selection.
func (h *Handler) GetSelection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.selectionResponse())
}

// SelectAccount handles PUT /selection/{name}.
func (h *Handler) SelectAccount(w http.ResponseWriter, r *http.Request) {
	h.selection.Add(param(r, "name"))
	writeJSON(w, http.StatusOK, h.selectionResponse())
}

// DeselectAccount handles DELETE /selection/{name}.
func (h *Handler) DeselectAccount(w http.ResponseWriter, r *http.Request) {
	h.selection.Remove(param(r, "name"))
	writeJSON(w, http.StatusOK, h.selectionResponse())
}

// flushOpen saves pending edits of the open account when it is one of names,
// so a forecast sees what the user typed.
func (h *Handler) flushOpen(ctx context.Context, names ...string) {
	s, err := h.workspace.Current()
	if err != nil || !slices.Contains(names, s.Name()) {
		return
	}
	if err := s.Flush(ctx); err != nil {
		h.logger.Warn("flush before forecast failed", slog.String("account", s.Name()), slog.String("error", err.Error()))
	}
}

// ForecastAccount handles GET /forecast/accounts/{name}.
//
//	@Summary		Simulate one account
//	@Tags			forecast
//	@Produce		json
//	@Param			name		path		string	true	"Account name"
//	@Param			portfolio	query		string	false	"Portfolio to invest through"
//	@Param			anon		query		bool	false	"Mask digits in labels"
//	@Success		200			{object}	forecast.AccountView
//	@Failure		404			{object}	errResponse
//	@Failure		502			{object}	errResponse
//	@Router			/forecast/accounts/{name} [get]
func (h *Handler) ForecastAccount(w http.ResponseWriter, r *http.Request) {
	name := param(r, "name")
	h.flushOpen(r.Context(), name)
	view, err := h.runner.Account(r.Context(), forecast.AccountRequest{
		Name:      name,
		Portfolio: r.URL.Query().Get("portfolio"),
		Anonymize: queryBool(r, "anon", false),
	})
	if err != nil {
		h.writeError(w, "forecast account", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ForecastScenario handles GET /forecast/scenario. Without an accounts
// parameter the current selection is simulated.
//
//	@Summary		Simulate several accounts together
//	@Tags			forecast
//	@Produce		json
//	@Param			accounts	query		string	false	"Comma-separated account names"
//	@Param			invested	query		bool	false	"Invested (default) or uninvested balances"
//	@Success		200			{object}	ScenarioResponse
//	@Failure		502			{object}	errResponse
//	@Router			/forecast/scenario [get]
func (h *Handler) ForecastScenario(w http.ResponseWriter, r *http.Request) {
	var names []string
	if q := r.URL.Query(); q.Has("accounts") {
		names = selection.ParseQuery(q.Get("accounts"))
	} else {
		names = h.selection.Selected()
	}
	h.flushOpen(r.Context(), names...)

	view, err := h.runner.Scenario(r.Context(), names)
	if err != nil {
		h.writeError(w, "forecast scenario", err)
		return
	}
	invested := queryBool(r, "invested", true)
	writeJSON(w, http.StatusOK, ScenarioResponse{
		RunID:    view.RunID,
		Accounts: view.Accounts,
		Invested: invested,
		Result:   view.Result,
		Chart:    view.Chart(invested),
	})
}
