// Package store defines the Remote Data Store ports: authentication,
// the per-identity settings document and the expense collection.
package store

import (
	"context"
	"errors"
	"time"

	"tazzio/internal/core"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// ResetTokenTTL bounds the lifetime of password reset tokens.
const ResetTokenTTL = time.Hour

// Session is an authenticated remote session.
type Session struct {
	Token     string        `json:"token"`
	Identity  core.Identity `json:"identity"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

type Auth interface {
	CreateAccount(ctx context.Context, email, password, displayName string) (core.Identity, error)
	Authenticate(ctx context.Context, email, password string) (Session, error)
	EndSession(ctx context.Context, token string) error
	// SessionIdentity resolves a token, ErrSessionExpired when unknown or expired.
	SessionIdentity(ctx context.Context, token string) (core.Identity, error)
	// SendPasswordReset issues a reset token for email and returns it so the
	// caller can hand it to a mailer. Unknown emails return "" and no error.
	SendPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	ChangeEmail(ctx context.Context, token, newEmail string) (core.Identity, error)
	ChangePassword(ctx context.Context, token, newPassword string) error
}

type SettingsStore interface {
	// GetSettings returns ErrNotFound when the identity has no document yet.
	GetSettings(ctx context.Context, userID string) (core.Settings, error)
	UpsertSettings(ctx context.Context, s core.Settings) error
	// PatchSettings merges the non-nil fields of p into the stored document
	// and returns the result.
	PatchSettings(ctx context.Context, userID string, p SettingsPatch) (core.Settings, error)
}

type ExpenseStore interface {
	// InsertExpense assigns ID and CreatedAt.
	InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	ReplaceExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, userID, id string) error
	// ListExpenses is ordered by date descending, newest creation first within a day.
	ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
}

// Remote is the full Remote Data Store.
type Remote interface {
	Auth
	SettingsStore
	ExpenseStore
}

// SettingsPatch lists the settings fields to overwrite. Nil means untouched.
type SettingsPatch struct {
	Language     *core.Language
	Currency     *string
	BuyerIncomes map[string]core.Money
	Categories   []core.Category
	Buyers       []core.Buyer
	Budgets      map[string]core.Money
	SavingsGoals []core.SavingsGoal
}

func (p SettingsPatch) IsEmpty() bool {
	return p.Language == nil && p.Currency == nil && p.BuyerIncomes == nil &&
		p.Categories == nil && p.Buyers == nil && p.Budgets == nil && p.SavingsGoals == nil
}

// Apply merges p into s and returns the result. s is not modified.
func (p SettingsPatch) Apply(s core.Settings, now time.Time) core.Settings {
	out := s.Clone()
	if p.Language != nil {
		out.Language = *p.Language
	}
	if p.Currency != nil {
		out.Currency = *p.Currency
	}
	if p.BuyerIncomes != nil {
		out.BuyerIncomes = core.CloneAmounts(p.BuyerIncomes)
	}
	if p.Categories != nil {
		out.Categories = append([]core.Category(nil), p.Categories...)
	}
	if p.Buyers != nil {
		out.Buyers = append([]core.Buyer(nil), p.Buyers...)
	}
	if p.Budgets != nil {
		out.Budgets = core.CloneAmounts(p.Budgets)
	}
	if p.SavingsGoals != nil {
		out.SavingsGoals = append([]core.SavingsGoal(nil), p.SavingsGoals...)
	}
	out.UpdatedAt = now.UTC()
	return out
}

// SortExpenses orders expenses date descending, then creation descending.
func SortExpenses(list []core.Expense) {
	sortExpenses(list)
}
