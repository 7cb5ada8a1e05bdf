package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/tortoise/internal/apperr"
	"github.com/starford/tortoise/internal/session"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps err to a status code. Index errors mean the client's view
// of the cash-flow list is out of date and are logged at error level.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var idx *apperr.IndexError
	switch {
	case errors.As(err, &idx):
		h.logger.Error(op+" failed: stale cash flow index",
			slog.Int("index", idx.Index), slog.Int("len", idx.Len), slog.String("error", err.Error()))
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, session.ErrNoSession):
		writeJSON(w, http.StatusConflict, errorBody("no account is open"))
	case errors.Is(err, session.ErrSessionMismatch):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("account already exists"))
	case errors.Is(err, apperr.ErrRemoteCall):
		h.logger.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn(op+" timed out", slog.String("error", err.Error()))
		writeJSON(w, http.StatusGatewayTimeout, errorBody("timeout"))
	default:
		h.logger.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
