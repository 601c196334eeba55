package http

import (
	"net/http"

	"tazzio/internal/budget"
)

// expenseRequest is budget.ExpenseInput with its free text sanitised.
type expenseRequest budget.ExpenseInput

func (e expenseRequest) input() budget.ExpenseInput {
	in := budget.ExpenseInput(e)
	in.Description = sanitizeInput(in.Description)
	in.CategoryID = sanitizeInput(in.CategoryID)
	in.BuyerID = sanitizeInput(in.BuyerID)
	return in
}

// ready loads the budget state when a previous load failed, so reads never
// serve an empty snapshot as if it were real.
func ready(r *http.Request, ws *Workspace) (budget.Snapshot, error) {
	if ws.budget.State() != budget.StateReady {
		if err := ws.budget.Reload(r.Context()); err != nil {
			return budget.Snapshot{}, err
		}
	}
	return ws.budget.Snapshot(), nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	snap, err := ready(r, ws)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	q := r.URL.Query()
	NewJSONResponse().Body(snap.FilterExpenses(q.Get("categoryId"), q.Get("buyerId"))).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req expenseRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	e, err := ws.budget.AddExpense(r.Context(), req.input())
	if err != nil {
		writeError(w, r, err, ws.budget.Translate)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+e.ID).
		Body(e).
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req expenseRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	e, err := ws.budget.UpdateExpense(r.Context(), r.PathValue("id"), req.input())
	if err != nil {
		writeError(w, r, err, ws.budget.Translate)
		return
	}
	NewJSONResponse().Body(e).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	if err := ws.budget.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, ws.budget.Translate)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
