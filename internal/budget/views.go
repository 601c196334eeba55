package budget

import (
	"fmt"
	"math/rand/v2"
	"time"

	"tazzio/internal/core"
	"tazzio/internal/i18n"
	"tazzio/internal/store"
)

// Snapshot is an immutable copy of the budget state. All views are computed
// from it against its clock.
type Snapshot struct {
	State    State
	Settings core.Settings
	Expenses []core.Expense
	Now      func() time.Time
}

func (s Snapshot) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s Snapshot) currency() string {
	if s.Settings.Currency == "" {
		return core.DefaultCurrency
	}
	return s.Settings.Currency
}

func (s Snapshot) language() core.Language {
	if !s.Settings.Language.IsValid() {
		return core.DefaultLanguage
	}
	return s.Settings.Language
}

// CurrentMonthExpenses returns the expenses dated in the current month,
// newest first.
func (s Snapshot) CurrentMonthExpenses() []core.Expense {
	now := s.now()
	out := []core.Expense{}
	for _, e := range s.Expenses {
		if e.Date.SameMonth(now) {
			out = append(out, e)
		}
	}
	store.SortExpenses(out)
	return out
}

// FilterExpenses returns the expenses matching both ids, newest first. An
// empty id matches everything.
func (s Snapshot) FilterExpenses(categoryID, buyerID string) []core.Expense {
	out := []core.Expense{}
	for _, e := range s.Expenses {
		if categoryID != "" && e.CategoryID != categoryID {
			continue
		}
		if buyerID != "" && e.BuyerID != buyerID {
			continue
		}
		out = append(out, e)
	}
	store.SortExpenses(out)
	return out
}

func (s Snapshot) TotalExpensesThisMonth() core.Money {
	return sum(s.CurrentMonthExpenses())
}

// ExpensesByCategory totals the current month per category id. Categories
// without expenses are absent.
func (s Snapshot) ExpensesByCategory() map[string]core.Money {
	return byCategory(s.CurrentMonthExpenses())
}

// ExpensesByBuyer totals the current month per buyer id, including ids of
// buyers that were since removed.
func (s Snapshot) ExpensesByBuyer() map[string]core.Money {
	return byBuyer(s.CurrentMonthExpenses())
}

func sum(list []core.Expense) core.Money {
	total := core.Zero
	for _, e := range list {
		total = total.Add(e.Amount)
	}
	return total
}

func byCategory(list []core.Expense) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, e := range list {
		out[e.CategoryID] = out[e.CategoryID].Add(e.Amount)
	}
	return out
}

func byBuyer(list []core.Expense) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, e := range list {
		out[e.BuyerID] = out[e.BuyerID].Add(e.Amount)
	}
	return out
}

func (s Snapshot) FormatAmount(m core.Money) string {
	return m.Format(s.currency())
}

// CategoryName returns "" for unknown ids.
func (s Snapshot) CategoryName(id string) string {
	c, _ := s.Settings.Category(id)
	return c.Name
}

func (s Snapshot) BuyerName(id string) string {
	b, _ := s.Settings.Buyer(id)
	return b.Name
}

func (s Snapshot) Translate(key string) string {
	return i18n.Translate(s.language(), key)
}

func (s Snapshot) TotalIncome() core.Money { return s.Settings.TotalIncome() }

func (s Snapshot) TotalBudget() core.Money { return s.Settings.TotalBudget() }

// RemainingBudget is the total income minus this month's spending. It goes
// negative on overspend.
func (s Snapshot) RemainingBudget() core.Money {
	return s.TotalIncome().Sub(s.TotalExpensesThisMonth())
}

type Status string

const (
	StatusSafe    Status = "safe"
	StatusWarning Status = "warning"
	StatusDanger  Status = "danger"

	warningPercent = 80
	dangerPercent  = 100
)

// TranslationKey is the i18n key of the status label.
func (st Status) TranslationKey() string {
	return "budget.status." + string(st)
}

// BudgetStatus compares this month's spending in a category with its
// budget. Categories without a positive budget are always safe.
func (s Snapshot) BudgetStatus(categoryID string) Status {
	limit, ok := s.Settings.Budgets[categoryID]
	if !ok || !limit.IsPositive() {
		return StatusSafe
	}
	pct := s.ExpensesByCategory()[categoryID].Percent(limit)
	switch {
	case pct >= dangerPercent:
		return StatusDanger
	case pct >= warningPercent:
		return StatusWarning
	default:
		return StatusSafe
	}
}

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	case "":
		return PeriodMonth, nil
	default:
		return "", core.Invalid("period", fmt.Sprintf("unknown period %q", s))
	}
}

// Start is the first day included in p, relative to now. The week covers
// the last seven days.
func (p Period) Start(now time.Time) core.Date {
	today := core.DateOf(now)
	switch p {
	case PeriodWeek:
		return core.Date{Time: today.AddDate(0, 0, -7)}
	case PeriodYear:
		return core.NewDate(today.Year(), time.January, 1)
	default:
		return core.NewDate(today.Year(), today.Month(), 1)
	}
}

// ExpensesInPeriod returns expenses dated on or after the period start.
func (s Snapshot) ExpensesInPeriod(p Period) []core.Expense {
	start := p.Start(s.now())
	out := []core.Expense{}
	for _, e := range s.Expenses {
		if !e.Date.Before(start.Time) {
			out = append(out, e)
		}
	}
	return out
}

// Report aggregates one period.
type Report struct {
	Period        Period                `json:"period"`
	Start         core.Date             `json:"start"`
	Total         core.Money            `json:"total"`
	Count         int                   `json:"count"`
	ByCategory    map[string]core.Money `json:"byCategory"`
	ByBuyer       map[string]core.Money `json:"byBuyer"`
	BuyerPercents map[string]float64    `json:"buyerPercents"`
}

func (s Snapshot) Report(p Period) Report {
	list := s.ExpensesInPeriod(p)
	r := Report{
		Period:        p,
		Start:         p.Start(s.now()),
		Total:         sum(list),
		Count:         len(list),
		ByCategory:    byCategory(list),
		ByBuyer:       byBuyer(list),
		BuyerPercents: make(map[string]float64),
	}
	for id, v := range r.ByBuyer {
		r.BuyerPercents[id] = v.Percent(r.Total)
	}
	return r
}

// Quote picks a motivational quote in the active language. r may be nil.
func (s Snapshot) Quote(r *rand.Rand) string {
	return i18n.Quote(s.language(), r)
}
