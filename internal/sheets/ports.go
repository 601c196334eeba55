// Package sheets defines the spreadsheet export of expenses. Rows carry
// resolved names so the sheet is readable without the settings document.
package sheets

import (
	"context"

	"tazzio/internal/core"
)

// Row is one exported expense.
type Row struct {
	ExpenseID   string
	UserID      string
	Date        core.Date
	Category    string
	Buyer       string
	Description string
	Amount      core.Money
	Currency    string
}

// Header is the first row of every export sheet; Values follows its order.
var Header = []string{"Date", "Category", "Buyer", "Description", "Amount", "Currency", "ID"}

// Values renders r in Header order.
func (r Row) Values() []any {
	return []any{r.Date.String(), r.Category, r.Buyer, r.Description, r.Amount.String(), r.Currency, r.ExpenseID}
}

// Ports for outbound adapters.
type (
	ExpenseWriter interface {
		// Append adds r to the sheet of its year and returns a reference to
		// the written range.
		Append(ctx context.Context, r Row) (rowRef string, err error)
	}

	ExpenseDeleter interface {
		// Delete removes the row of expenseID, reporting whether one existed.
		Delete(ctx context.Context, expenseID string) (bool, error)
	}

	Exporter interface {
		ExpenseWriter
		ExpenseDeleter
	}
)
