package core

import "time"

// DefaultCategories returns a fresh copy of the built-in category set.
func DefaultCategories() []Category {
	return []Category{
		{ID: "food", Name: "Alimentation", Icon: "🍽️", Color: "#E07A5F"},
		{ID: "transport", Name: "Transport", Icon: "🚗", Color: "#9CAF88"},
		{ID: "housing", Name: "Logement", Icon: "🏠", Color: "#D2B48C"},
		{ID: "entertainment", Name: "Loisirs", Icon: "🎭", Color: "#C8860D"},
		{ID: "health", Name: "Santé", Icon: "🏥", Color: "#8B4513"},
		{ID: "shopping", Name: "Achats", Icon: "🛍️", Color: "#F2E7D5"},
		{ID: "bills", Name: "Factures", Icon: "📋", Color: "#5D4037"},
		{ID: "other", Name: "Autres", Icon: "📦", Color: "#E6D5C3"},
	}
}

func DefaultBuyers() []Buyer {
	return []Buyer{
		{ID: "1", Name: "Me"},
		{ID: "2", Name: "Partner"},
	}
}

// DefaultSettings is the document provisioned for an identity on first load.
func DefaultSettings(userID string, now time.Time) Settings {
	buyers := DefaultBuyers()
	incomes := make(map[string]Money, len(buyers))
	for _, b := range buyers {
		incomes[b.ID] = Zero
	}
	return Settings{
		UserID:       userID,
		Language:     DefaultLanguage,
		Currency:     DefaultCurrency,
		BuyerIncomes: incomes,
		Categories:   DefaultCategories(),
		Buyers:       buyers,
		Budgets:      map[string]Money{},
		SavingsGoals: []SavingsGoal{},
		UpdatedAt:    now.UTC(),
	}
}
