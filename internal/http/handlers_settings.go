package http

import (
	"net/http"

	"tazzio/internal/core"
)

type amountRequest struct {
	Amount core.Money `json:"amount"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type categoryRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

type savingsGoalRequest struct {
	Name         string     `json:"name"`
	TargetAmount core.Money `json:"targetAmount"`
	Description  string     `json:"description,omitempty"`
}

type languageRequest struct {
	Language string `json:"language"`
}

type currencyRequest struct {
	Currency string `json:"currency"`
}

// respond writes err, or status with body when err is nil.
func respond(w http.ResponseWriter, r *http.Request, ws *Workspace, err error, status int, body any) {
	if err != nil {
		writeError(w, r, err, ws.budget.Translate)
		return
	}
	NewJSONResponse().Status(status).Body(body).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req amountRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	err := ws.budget.UpdateBudget(r.Context(), r.PathValue("categoryID"), req.Amount)
	respond(w, r, ws, err, http.StatusNoContent, nil)
}

func (s *Server) handleAddBuyer(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req nameRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	b, err := ws.budget.AddBuyer(r.Context(), sanitizeInput(req.Name))
	respond(w, r, ws, err, http.StatusCreated, b)
}

func (s *Server) handleUpdateBuyer(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req nameRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	err := ws.budget.UpdateBuyer(r.Context(), r.PathValue("id"), sanitizeInput(req.Name))
	respond(w, r, ws, err, http.StatusNoContent, nil)
}

func (s *Server) handleRemoveBuyer(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	err := ws.budget.RemoveBuyer(r.Context(), r.PathValue("id"))
	respond(w, r, ws, err, http.StatusNoContent, nil)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req amountRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	err := ws.budget.UpdateBuyerIncome(r.Context(), r.PathValue("id"), req.Amount)
	respond(w, r, ws, err, http.StatusNoContent, nil)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req categoryRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	c, err := ws.budget.AddCategory(r.Context(), sanitizeInput(req.Name), sanitizeInput(req.Icon), sanitizeInput(req.Color))
	respond(w, r, ws, err, http.StatusCreated, c)
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req nameRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	err := ws.budget.RenameCategory(r.Context(), r.PathValue("id"), sanitizeInput(req.Name))
	respond(w, r, ws, err, http.StatusNoContent, nil)
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	err := ws.budget.RemoveCategory(r.Context(), r.PathValue("id"))
	respond(w, r, ws, err, http.StatusNoContent, nil)
}

func (s *Server) handleAddSavingsGoal(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req savingsGoalRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	g, err := ws.budget.AddSavingsGoal(r.Context(), sanitizeInput(req.Name), req.TargetAmount, sanitizeInput(req.Description))
	respond(w, r, ws, err, http.StatusCreated, savingsView{SavingsGoal: g, Progress: g.Progress(), Completed: g.Completed()})
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req amountRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	g, err := ws.budget.UpdateSavingsGoal(r.Context(), r.PathValue("id"), req.Amount)
	respond(w, r, ws, err, http.StatusOK, savingsView{SavingsGoal: g, Progress: g.Progress(), Completed: g.Completed()})
}

func (s *Server) handleRemoveSavingsGoal(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	err := ws.budget.RemoveSavingsGoal(r.Context(), r.PathValue("id"))
	respond(w, r, ws, err, http.StatusNoContent, nil)
}

func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req languageRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	err := ws.budget.SetLanguage(r.Context(), sanitizeInput(req.Language))
	respond(w, r, ws, err, http.StatusNoContent, nil)
}

func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req currencyRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	err := ws.budget.SetCurrency(r.Context(), sanitizeInput(req.Currency))
	respond(w, r, ws, err, http.StatusNoContent, nil)
}
