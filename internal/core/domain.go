package core

import (
	"errors"
	"strings"
	"time"
)

const (
	LanguageFrench  Language = "fr"
	LanguageEnglish Language = "en"
	LanguageSpanish Language = "es"

	DefaultLanguage = LanguageFrench
	DefaultCurrency = "€"

	maxDescriptionLen = 200
	dateLayout        = "2006-01-02"
)

type (
	Language string

	// Date is a calendar date. The time component is always midnight UTC.
	Date struct {
		time.Time
	}

	Identity struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName,omitempty"`
	}

	Category struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Icon  string `json:"icon"`
		Color string `json:"color"`
	}

	// Buyer is a household member an expense or an income can be attributed to.
	Buyer struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Expense struct {
		ID          string    `json:"id"`
		UserID      string    `json:"userId"`
		Amount      Money     `json:"amount"`
		CategoryID  string    `json:"categoryId"`
		BuyerID     string    `json:"buyerId"`
		Description string    `json:"description,omitempty"`
		Date        Date      `json:"date"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	SavingsGoal struct {
		ID            string    `json:"id"`
		Name          string    `json:"name"`
		Description   string    `json:"description,omitempty"`
		TargetAmount  Money     `json:"targetAmount"`
		CurrentAmount Money     `json:"currentAmount"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	// Settings is the per-identity settings document.
	Settings struct {
		UserID       string           `json:"userId"`
		Language     Language         `json:"language"`
		Currency     string           `json:"currency"`
		BuyerIncomes map[string]Money `json:"buyerIncomes"`
		Categories   []Category       `json:"categories"`
		Buyers       []Buyer          `json:"buyers"`
		Budgets      map[string]Money `json:"budgets"`
		SavingsGoals []SavingsGoal    `json:"savingsGoals"`
		UpdatedAt    time.Time        `json:"updatedAt"`
	}
)

var (
	ErrValidation = errors.New("validation failed")
	ErrZeroDate   = errors.New("date cannot be zero")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValid reports whether l is one of the supported languages.
func (l Language) IsValid() bool {
	switch l {
	case LanguageFrench, LanguageEnglish, LanguageSpanish:
		return true
	default:
		return false
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// SameMonth reports whether d falls in the calendar month of t.
func (d Date) SameMonth(t time.Time) bool {
	return d.Year() == t.Year() && d.Month() == t.Month()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	// Accept full timestamps too; only the calendar part is kept.
	if len(s) > len(dateLayout) {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
		*d = DateOf(t)
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (e Expense) Validate() error {
	if e.Amount.IsZero() {
		return Invalid("amount", "required")
	}
	if !e.Amount.IsPositive() {
		return Invalid("amount", "must be greater than zero")
	}
	if !e.Amount.WholeCents() {
		return Invalid("amount", "at most 2 decimal places")
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return Invalid("categoryId", "required")
	}
	if strings.TrimSpace(e.BuyerID) == "" {
		return Invalid("buyerId", "required")
	}
	if err := e.Date.Validate(); err != nil {
		return Invalid("date", err.Error())
	}
	if len(e.Description) > maxDescriptionLen {
		return Invalid("description", "too long (max 200 characters)")
	}
	return nil
}

// Completed is derived, never stored.
func (g SavingsGoal) Completed() bool {
	return g.CurrentAmount.Cmp(g.TargetAmount) >= 0
}

// Progress returns the completion percentage, uncapped.
func (g SavingsGoal) Progress() float64 {
	if !g.TargetAmount.IsPositive() {
		return 0
	}
	return g.CurrentAmount.Percent(g.TargetAmount)
}

// TotalIncome is always the sum of the buyer incomes.
func (s Settings) TotalIncome() Money {
	total := Zero
	for _, v := range s.BuyerIncomes {
		total = total.Add(v)
	}
	return total
}

// TotalBudget sums every category budget.
func (s Settings) TotalBudget() Money {
	total := Zero
	for _, v := range s.Budgets {
		total = total.Add(v)
	}
	return total
}

func (s Settings) Buyer(id string) (Buyer, bool) {
	for _, b := range s.Buyers {
		if b.ID == id {
			return b, true
		}
	}
	return Buyer{}, false
}

func (s Settings) Category(id string) (Category, bool) {
	for _, c := range s.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

func (s Settings) SavingsGoal(id string) (SavingsGoal, int, bool) {
	for i, g := range s.SavingsGoals {
		if g.ID == id {
			return g, i, true
		}
	}
	return SavingsGoal{}, -1, false
}

// Clone returns a deep copy so callers can mutate freely.
func (s Settings) Clone() Settings {
	out := s
	out.BuyerIncomes = CloneAmounts(s.BuyerIncomes)
	out.Budgets = CloneAmounts(s.Budgets)
	out.Categories = append([]Category(nil), s.Categories...)
	out.Buyers = append([]Buyer(nil), s.Buyers...)
	out.SavingsGoals = append([]SavingsGoal(nil), s.SavingsGoals...)
	return out
}

// Normalize fills nil collections and invalid preferences with defaults.
func (s *Settings) Normalize() {
	if !s.Language.IsValid() {
		s.Language = DefaultLanguage
	}
	if strings.TrimSpace(s.Currency) == "" {
		s.Currency = DefaultCurrency
	}
	if s.BuyerIncomes == nil {
		s.BuyerIncomes = map[string]Money{}
	}
	if s.Budgets == nil {
		s.Budgets = map[string]Money{}
	}
	if len(s.Categories) == 0 {
		s.Categories = DefaultCategories()
	}
	if len(s.Buyers) == 0 {
		s.Buyers = DefaultBuyers()
	}
	if s.SavingsGoals == nil {
		s.SavingsGoals = []SavingsGoal{}
	}
}

func CloneAmounts(in map[string]Money) map[string]Money {
	out := make(map[string]Money, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
