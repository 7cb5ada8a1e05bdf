package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/starford/tortoise/internal/editor"
	"github.com/starford/tortoise/internal/models"
	"github.com/starford/tortoise/internal/session"
)

func (h *Handler) state(s *session.Session) EditorState {
	a := s.Store().Snapshot()
	issues := models.Issues(a)
	if issues == nil {
		issues = []models.Issue{}
	}
	st := EditorState{
		Account: newAccountDTO(a),
		Issues:  issues,
		Version: s.Store().Version(),
		Pending: s.Autosave().Pending(),
	}
	if err := s.Autosave().LastError(); err != nil {
		st.SaveError = err.Error()
	}
	return st
}

// edit applies fn to the open account and answers with the new state.
func (h *Handler) edit(w http.ResponseWriter, op string, fn func(st *editor.Store) error) {
	s, err := h.workspace.Current()
	if err != nil {
		h.writeError(w, op, err)
		return
	}
	if s.Closed() {
		h.writeError(w, op, session.ErrNoSession)
		return
	}
	if err := fn(s.Store()); err != nil {
		h.writeError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, h.state(s))
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(param(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("index must be an integer"))
		return 0, false
	}
	return i, true
}

func checkFrequency(f models.Frequency) error {
	if !f.Valid() {
		return fmt.Errorf("unknown frequency %q", f)
	}
	return nil
}

// OpenAccount handles POST /editor/open/{name}. The previously open account
// is flushed first.
//
//	@Summary		Open an account for editing
//	@Tags			editor
//	@Produce		json
//	@Param			name	path		string	true	"Account name"
//	@Success		200		{object}	EditorState
//	@Failure		404		{object}	errResponse
//	@Router			/editor/open/{name} [post]
func (h *Handler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	s, err := h.workspace.Open(r.Context(), param(r, "name"))
	if err != nil {
		h.writeError(w, "open account", err)
		return
	}
	writeJSON(w, http.StatusOK, h.state(s))
}

// NewAccount handles POST /editor/new.
func (h *Handler) NewAccount(w http.ResponseWriter, r *http.Request) {
	s, err := h.workspace.New(r.Context())
	if err != nil {
		h.writeError(w, "new account", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.state(s))
}

// CloseAccount handles POST /editor/close.
func (h *Handler) CloseAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.workspace.Close(r.Context()); err != nil {
		h.writeError(w, "close account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetEditor handles GET /editor.
func (h *Handler) GetEditor(w http.ResponseWriter, _ *http.Request) {
	h.edit(w, "get editor", func(*editor.Store) error { return nil })
}

// Issues handles GET /editor/issues.
func (h *Handler) Issues(w http.ResponseWriter, _ *http.Request) {
	s, err := h.workspace.Current()
	if err != nil {
		h.writeError(w, "get issues", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"issues": h.state(s).Issues})
}

// ReplaceAccount handles PUT /editor. The body is taken as is, so whatever
// GET /editor served, unknown frequencies and null tags included, can be sent
// back unchanged.
func (h *Handler) ReplaceAccount(w http.ResponseWriter, r *http.Request) {
	var a models.Account
	if !readJSON(w, r, &a) {
		return
	}
	if a.CashFlows == nil {
		a.CashFlows = []models.CashFlow{}
	}
	h.edit(w, "replace account", func(st *editor.Store) error {
		st.SetAll(a)
		return nil
	})
}

// PatchAccount handles PATCH /editor.
//
//	@Summary		Change account fields
//	@Tags			editor
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AccountPatch	true	"Fields to change"
//	@Success		200		{object}	EditorState
//	@Failure		409		{object}	errResponse
//	@Router			/editor [patch]
func (h *Handler) PatchAccount(w http.ResponseWriter, r *http.Request) {
	var p AccountPatch
	if !readJSON(w, r, &p) {
		return
	}
	h.edit(w, "patch account", func(st *editor.Store) error {
		if p.Name != nil {
			st.SetName(*p.Name)
		}
		if p.StartDate != nil {
			st.SetStartDate(*p.StartDate)
		}
		if p.EndDate != nil {
			st.SetEndDate(*p.EndDate)
		}
		if p.Balance != nil {
			st.SetBalance(*p.Balance)
		}
		return nil
	})
}

// DeleteEditorAccount handles DELETE /editor: the open account is deleted
// and the session ends.
func (h *Handler) DeleteEditorAccount(w http.ResponseWriter, r *http.Request) {
	s, err := h.workspace.Current()
	if err != nil {
		h.writeError(w, "delete account", err)
		return
	}
	name := s.Name()
	if err := h.workspace.Delete(r.Context(), name); err != nil {
		h.writeError(w, "delete account", err)
		return
	}
	h.selection.Remove(name)
	w.WriteHeader(http.StatusNoContent)
}

// AppendCashFlow handles POST /editor/cash-flows. An empty body appends the
// default cash flow.
func (h *Handler) AppendCashFlow(w http.ResponseWriter, r *http.Request) {
	cf := models.DefaultCashFlow()
	if r.ContentLength != 0 {
		if !readJSON(w, r, &cf) {
			return
		}
	}
	if err := checkFrequency(cf.Frequency); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	h.edit(w, "append cash flow", func(st *editor.Store) error {
		st.AddCashFlow(cf)
		return nil
	})
}

// InsertCashFlow handles POST /editor/cash-flows/{index}.
func (h *Handler) InsertCashFlow(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	h.edit(w, "insert cash flow", func(st *editor.Store) error {
		return st.AddCashFlowIndex(i)
	})
}

// RemoveCashFlow handles DELETE /editor/cash-flows/{index}.
func (h *Handler) RemoveCashFlow(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	h.edit(w, "remove cash flow", func(st *editor.Store) error {
		return st.RemoveCashFlowIndex(i)
	})
}

// PatchCashFlow handles PATCH /editor/cash-flows/{index}. Each present field
// is one mutation; the first failing one stops the rest.
//
//	@Summary		Change cash-flow fields
//	@Tags			editor
//	@Accept			json
//	@Produce		json
//	@Param			index	path		int				true	"Cash-flow position"
//	@Param			body	body		CashFlowPatch	true	"Fields to change"
//	@Success		200		{object}	EditorState
//	@Failure		409		{object}	errResponse
//	@Router			/editor/cash-flows/{index} [patch]
func (h *Handler) PatchCashFlow(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	var p CashFlowPatch
	if !readJSON(w, r, &p) {
		return
	}
	if p.Frequency != nil {
		if err := checkFrequency(*p.Frequency); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
	}
	h.edit(w, "patch cash flow", func(st *editor.Store) error {
		var steps []func() error
		if p.Name != nil {
			steps = append(steps, func() error { return st.SetCashFlowName(i, *p.Name) })
		}
		if p.Amount != nil {
			steps = append(steps, func() error { return st.SetCashFlowAmount(i, *p.Amount) })
		}
		if p.Frequency != nil {
			steps = append(steps, func() error { return st.SetCashFlowFrequency(i, *p.Frequency) })
		}
		if p.StartDate.Set {
			steps = append(steps, func() error { return st.SetCashFlowStartDate(i, p.StartDate.Value) })
		}
		if p.EndDate.Set {
			steps = append(steps, func() error { return st.SetCashFlowEndDate(i, p.EndDate.Value) })
		}
		if p.TaxRate != nil {
			steps = append(steps, func() error { return st.SetCashFlowTaxRate(i, *p.TaxRate) })
		}
		if p.Tags != nil {
			steps = append(steps, func() error { return st.SetCashFlowTags(i, p.Tags) })
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddTag handles POST /editor/cash-flows/{index}/tags/{tag}.
func (h *Handler) AddTag(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	tag := param(r, "tag")
	h.edit(w, "add tag", func(st *editor.Store) error {
		return st.AddCashFlowTag(i, tag)
	})
}

// RemoveTag handles DELETE /editor/cash-flows/{index}/tags/{tag}.
func (h *Handler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	tag := param(r, "tag")
	h.edit(w, "remove tag", func(st *editor.Store) error {
		return st.RemoveCashFlowTag(i, tag)
	})
}

// SetTags handles PUT /editor/cash-flows/{index}/tags.
func (h *Handler) SetTags(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req TagsRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}
	h.edit(w, "set tags", func(st *editor.Store) error {
		return st.SetCashFlowTags(i, req.Tags)
	})
}

// ClearTags handles DELETE /editor/cash-flows/{index}/tags.
func (h *Handler) ClearTags(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	h.edit(w, "clear tags", func(st *editor.Store) error {
		return st.ClearCashFlowTags(i)
	})
}
