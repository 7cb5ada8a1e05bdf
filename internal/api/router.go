package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Stored accounts.
	r.Get("/accounts", h.ListAccounts)
	r.Get("/accounts/detail", h.ListAccountsDetail)
	r.Get("/accounts/{name}/cash-flows", h.CashFlows)
	r.Get("/accounts/{name}/magnitudes", h.Magnitudes)
	r.Delete("/accounts/{name}", h.DeleteAccount)
	r.Get("/portfolios", h.ListPortfolios)

	// Edit session.
	r.Route("/editor", func(r chi.Router) {
		r.Post("/open/{name}", h.OpenAccount)
		r.Post("/new", h.NewAccount)
		r.Post("/close", h.CloseAccount)
		r.Get("/", h.GetEditor)
		r.Put("/", h.ReplaceAccount)
		r.Patch("/", h.PatchAccount)
		r.Delete("/", h.DeleteEditorAccount)
		r.Get("/issues", h.Issues)

		r.Post("/cash-flows", h.AppendCashFlow)
		r.Post("/cash-flows/{index}", h.InsertCashFlow)
		r.Patch("/cash-flows/{index}", h.PatchCashFlow)
		r.Delete("/cash-flows/{index}", h.RemoveCashFlow)
		r.Put("/cash-flows/{index}/tags", h.SetTags)
		r.Delete("/cash-flows/{index}/tags", h.ClearTags)
		r.Post("/cash-flows/{index}/tags/{tag}", h.AddTag)
		r.Delete("/cash-flows/{index}/tags/{tag}", h.RemoveTag)
	})

	// Scenario selection.
	r.Get("/selection", h.GetSelection)
	r.Put("/selection/{name}", h.SelectAccount)
	r.Delete("/selection/{name}", h.DeselectAccount)

	// Forecasts.
	r.Get("/forecast/accounts/{name}", h.ForecastAccount)
	r.Get("/forecast/scenario", h.ForecastScenario)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
