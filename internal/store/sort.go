package store

import (
	"slices"

	"tazzio/internal/core"
)

func sortExpenses(list []core.Expense) {
	slices.SortStableFunc(list, func(a, b core.Expense) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
