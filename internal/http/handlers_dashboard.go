package http

import (
	"net/http"

	"tazzio/internal/budget"
	"tazzio/internal/core"
)

// categoryView is a category with this month's figures.
type categoryView struct {
	core.Category
	Spent       core.Money    `json:"spent"`
	Budget      core.Money    `json:"budget"`
	Status      budget.Status `json:"status"`
	StatusLabel string        `json:"statusLabel"`
}

type buyerView struct {
	core.Buyer
	Income core.Money `json:"income"`
	Spent  core.Money `json:"spent"`
}

type savingsView struct {
	core.SavingsGoal
	Progress  float64 `json:"progress"`
	Completed bool    `json:"completed"`
}

type totalsView struct {
	Expenses  core.Money `json:"expenses"`
	Income    core.Money `json:"income"`
	Budget    core.Money `json:"budget"`
	Remaining core.Money `json:"remaining"`
}

// displayView holds the totals formatted with the active currency.
type displayView struct {
	Expenses  string `json:"expenses"`
	Income    string `json:"income"`
	Budget    string `json:"budget"`
	Remaining string `json:"remaining"`
}

type stateResponse struct {
	Identity   core.Identity  `json:"identity"`
	Language   core.Language  `json:"language"`
	Currency   string         `json:"currency"`
	Month      string         `json:"month"`
	Totals     totalsView     `json:"totals"`
	Display    displayView    `json:"display"`
	Categories []categoryView `json:"categories"`
	Buyers     []buyerView    `json:"buyers"`
	Savings    []savingsView  `json:"savings"`
	Expenses   []core.Expense `json:"expenses"`
}

func buildState(id core.Identity, snap budget.Snapshot) stateResponse {
	byCat := snap.ExpensesByCategory()
	byBuyer := snap.ExpensesByBuyer()
	month := snap.CurrentMonthExpenses()

	totals := totalsView{
		Expenses:  snap.TotalExpensesThisMonth(),
		Income:    snap.TotalIncome(),
		Budget:    snap.TotalBudget(),
		Remaining: snap.RemainingBudget(),
	}
	resp := stateResponse{
		Identity: id,
		Language: snap.Settings.Language,
		Currency: snap.Settings.Currency,
		Totals:   totals,
		Display: displayView{
			Expenses:  snap.FormatAmount(totals.Expenses),
			Income:    snap.FormatAmount(totals.Income),
			Budget:    snap.FormatAmount(totals.Budget),
			Remaining: snap.FormatAmount(totals.Remaining),
		},
		Categories: make([]categoryView, 0, len(snap.Settings.Categories)),
		Buyers:     make([]buyerView, 0, len(snap.Settings.Buyers)),
		Savings:    make([]savingsView, 0, len(snap.Settings.SavingsGoals)),
		Expenses:   month,
	}
	if snap.Now != nil {
		resp.Month = snap.Now().Format("2006-01")
	}
	for _, c := range snap.Settings.Categories {
		st := snap.BudgetStatus(c.ID)
		resp.Categories = append(resp.Categories, categoryView{
			Category:    c,
			Spent:       byCat[c.ID],
			Budget:      snap.Settings.Budgets[c.ID],
			Status:      st,
			StatusLabel: snap.Translate(st.TranslationKey()),
		})
	}
	for _, b := range snap.Settings.Buyers {
		resp.Buyers = append(resp.Buyers, buyerView{
			Buyer:  b,
			Income: snap.Settings.BuyerIncomes[b.ID],
			Spent:  byBuyer[b.ID],
		})
	}
	for _, g := range snap.Settings.SavingsGoals {
		resp.Savings = append(resp.Savings, savingsView{
			SavingsGoal: g,
			Progress:    g.Progress(),
			Completed:   g.Completed(),
		})
	}
	return resp
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	snap, err := ready(r, ws)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	id, _ := ws.session.Current()
	NewJSONResponse().Body(buildState(id, snap)).Write(w)
}

type reportResponse struct {
	budget.Report
	Display struct {
		Total string `json:"total"`
	} `json:"display"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	period, err := budget.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	snap, err := ready(r, ws)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	resp := reportResponse{Report: snap.Report(period)}
	resp.Display.Total = snap.FormatAmount(resp.Total)
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleTranslation(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	key := r.PathValue("key")
	snap := ws.budget.Snapshot()
	NewJSONResponse().Body(map[string]string{
		"key":      key,
		"language": string(snap.Settings.Language),
		"value":    snap.Translate(key),
	}).Write(w)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	NewJSONResponse().Body(map[string]string{
		"quote": ws.budget.Snapshot().Quote(nil),
	}).Write(w)
}
