package budget

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"tazzio/internal/core"
	"tazzio/internal/i18n"
	"tazzio/internal/log"
	"tazzio/internal/store"
)

const (
	maxNameLen     = 60
	maxCurrencyLen = 8

	defaultCategoryIcon  = "📦"
	defaultCategoryColor = "#E6D5C3"
)

// ExpenseInput is the user-provided part of an expense. A zero Date means
// today.
type ExpenseInput struct {
	Amount      core.Money `json:"amount"`
	CategoryID  string     `json:"categoryId"`
	BuyerID     string     `json:"buyerId"`
	Description string     `json:"description,omitempty"`
	Date        core.Date  `json:"date"`
}

func (s *Store) expenseFrom(in ExpenseInput, userID string, settings core.Settings) (core.Expense, error) {
	e := core.Expense{
		UserID:      userID,
		Amount:      in.Amount,
		CategoryID:  strings.TrimSpace(in.CategoryID),
		BuyerID:     strings.TrimSpace(in.BuyerID),
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
	}
	if e.Date.IsZero() {
		e.Date = core.DateOf(s.now())
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if _, ok := settings.Category(e.CategoryID); !ok {
		return core.Expense{}, core.Invalid("categoryId", "unknown category")
	}
	if _, ok := settings.Buyer(e.BuyerID); !ok {
		return core.Expense{}, core.Invalid("buyerId", "unknown buyer")
	}
	return e, nil
}

// precheck rejects inputs missing required fields before any remote call.
func precheck(in ExpenseInput) error {
	switch {
	case in.Amount.IsZero():
		return core.Invalid("amount", "required")
	case strings.TrimSpace(in.CategoryID) == "":
		return core.Invalid("categoryId", "required")
	case strings.TrimSpace(in.BuyerID) == "":
		return core.Invalid("buyerId", "required")
	}
	return nil
}

// AddExpense records an expense and reloads the full list so server-assigned
// fields are reflected.
func (s *Store) AddExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	if err := precheck(in); err != nil {
		return core.Expense{}, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	userID, gen, settings, _, err := s.ready(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	e, err := s.expenseFrom(in, userID, settings)
	if err != nil {
		return core.Expense{}, err
	}

	saved, err := s.remote.InsertExpense(ctx, e)
	if err != nil {
		return core.Expense{}, s.remoteErr(ctx, log.OpCreate, err)
	}

	list, err := s.remote.ListExpenses(ctx, userID)
	if err != nil {
		// The write succeeded; fall back to the record the store returned.
		s.logger.WarnContext(ctx, "Reload after insert failed, applying inserted record",
			log.FieldExpenseID, saved.ID, log.FieldError, err)
		err = s.commit(gen, func() {
			s.expenses = append(s.expenses, saved)
			store.SortExpenses(s.expenses)
		})
		return saved, err
	}
	return saved, s.commit(gen, func() { s.expenses = list })
}

// UpdateExpense replaces the user-editable fields of expense id.
func (s *Store) UpdateExpense(ctx context.Context, id string, in ExpenseInput) (core.Expense, error) {
	if err := precheck(in); err != nil {
		return core.Expense{}, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	userID, gen, settings, _, err := s.ready(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	e, err := s.expenseFrom(in, userID, settings)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = id

	saved, err := s.remote.ReplaceExpense(ctx, e)
	if err != nil {
		return core.Expense{}, s.remoteErr(ctx, log.OpUpdate, err)
	}
	return saved, s.commit(gen, func() {
		for i := range s.expenses {
			if s.expenses[i].ID == id {
				s.expenses[i] = saved
			}
		}
		store.SortExpenses(s.expenses)
	})
}

// DeleteExpense removes id locally only once the remote confirmed it.
func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return core.Invalid("id", "required")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	userID, gen, _, _, err := s.ready(ctx)
	if err != nil {
		return err
	}
	if err := s.remote.DeleteExpense(ctx, userID, id); err != nil {
		return s.remoteErr(ctx, log.OpDelete, err)
	}
	return s.commit(gen, func() {
		kept := s.expenses[:0]
		for _, e := range s.expenses {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		s.expenses = kept
	})
}

// patchFunc derives a settings patch from the current settings and
// expenses, or rejects the mutation. Both are copies taken under writeMu.
type patchFunc func(cur core.Settings, expenses []core.Expense) (store.SettingsPatch, error)

func (s *Store) patchSettings(ctx context.Context, op string, build patchFunc) (core.Settings, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	userID, gen, cur, expenses, err := s.ready(ctx)
	if err != nil {
		return core.Settings{}, err
	}
	patch, err := build(cur, expenses)
	if err != nil {
		return core.Settings{}, err
	}
	updated, err := s.remote.PatchSettings(ctx, userID, patch)
	if err != nil {
		return core.Settings{}, s.remoteErr(ctx, op, err)
	}
	updated.Normalize()
	if err := s.commit(gen, func() { s.settings = updated }); err != nil {
		return core.Settings{}, err
	}
	return updated, nil
}

func cleanName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", core.Invalid(field, "required")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "", core.Invalid(field, fmt.Sprintf("too long (max %d characters)", maxNameLen))
	}
	return name, nil
}

func nonNegative(field string, m core.Money) error {
	if m.IsNegative() {
		return core.Invalid(field, "must not be negative")
	}
	return wholeCents(field, m)
}

func positive(field string, m core.Money) error {
	if !m.IsPositive() {
		return core.Invalid(field, "must be greater than zero")
	}
	return wholeCents(field, m)
}

func wholeCents(field string, m core.Money) error {
	if !m.WholeCents() {
		return core.Invalid(field, "at most 2 decimal places")
	}
	return nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, store.ErrNotFound)
}

// UpdateBudget sets the monthly budget of a category and persists the whole
// budgets mapping.
func (s *Store) UpdateBudget(ctx context.Context, categoryID string, amount core.Money) error {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return core.Invalid("categoryId", "required")
	}
	if err := nonNegative("amount", amount); err != nil {
		return err
	}
	_, err := s.patchSettings(ctx, log.OpUpdate, func(cur core.Settings, _ []core.Expense) (store.SettingsPatch, error) {
		budgets := core.CloneAmounts(cur.Budgets)
		budgets[categoryID] = amount
		return store.SettingsPatch{Budgets: budgets}, nil
	})
	return err
}

// AddBuyer appends a buyer with a zero income.
func (s *Store) AddBuyer(ctx context.Context, name string) (core.Buyer, error) {
	name, err := cleanName("name", name)
	if err != nil {
		return core.Buyer{}, err
	}
	b := core.Buyer{ID: uuid.NewString(), Name: name}
	_, err = s.patchSettings(ctx, log.OpCreate, func(cur core.Settings, _ []core.Expense) (store.SettingsPatch, error) {
		incomes := core.CloneAmounts(cur.BuyerIncomes)
		incomes[b.ID] = core.Zero
		return store.SettingsPatch{Buyers: append(cur.Buyers, b), BuyerIncomes: incomes}, nil
	})
	if err != nil {
		return core.Buyer{}, err
	}
	return b, nil
}

func (s *Store) UpdateBuyer(ctx context.Context, id, name string) error {
	name, err := cleanName("name", name)
	if err != nil {
		return err
	}
	_, err = s.patchSettings(ctx, log.OpUpdate, func(cur core.Settings, _ []core.Expense) (store.SettingsPatch, error) {
		buyers := cur.Buyers
		for i := range buyers {
			if buyers[i].ID == id {
				buyers[i].Name = name
				return store.SettingsPatch{Buyers: buyers}, nil
			}
		}
		return store.SettingsPatch{}, notFound("buyer", id)
	})
	return err
}

// RemoveBuyer deletes a buyer and its income entry in one settings update.
// Expenses keep their buyer id.
func (s *Store) RemoveBuyer(ctx context.Context, id string) error {
	_, err := s.patchSettings(ctx, log.OpDelete, func(cur core.Settings, _ []core.Expense) (store.SettingsPatch, error) {
		if _, ok := cur.Buyer(id); !ok {
			return store.SettingsPatch{}, notFound("buyer", id)
		}
		if len(cur.Buyers) <= 1 {
			return store.SettingsPatch{}, ErrLastBuyer
		}
		buyers := make([]core.Buyer, 0, len(cur.Buyers)-1)
		for _, b := range cur.Buyers {
			if b.ID != id {
				buyers = append(buyers, b)
			}
		}
		incomes := core.CloneAmounts(cur.BuyerIncomes)
		delete(incomes, id)
		return store.SettingsPatch{Buyers: buyers, BuyerIncomes: incomes}, nil
	})
	return err
}

// UpdateBuyerIncome sets one buyer's income. The total is derived.
func (s *Store) UpdateBuyerIncome(ctx context.Context, buyerID string, amount core.Money) error {
	if err := nonNegative("amount", amount); err != nil {
		return err
	}
	_, err := s.patchSettings(ctx, log.OpUpdate, func(cur core.Settings, _ []core.Expense) (store.SettingsPatch, error) {
		if _, ok := cur.Buyer(buyerID); !ok {
			return store.SettingsPatch{}, notFound("buyer", buyerID)
		}
		incomes := core.CloneAmounts(cur.BuyerIncomes)
		incomes[buyerID] = amount
		return store.SettingsPatch{BuyerIncomes: incomes}, nil
	})
	return err
}

func (s *Store) AddCategory(ctx context.Context, name, icon, color string) (core.Category, error) {
	name, err := cleanName("name", name)
	if err != nil {
		return core.Category{}, err
	}
	c := core.Category{ID: uuid.NewString(), Name: name, Icon: strings.TrimSpace(icon), Color: strings.TrimSpace(color)}
	if c.Icon == "" {
		c.Icon = defaultCategoryIcon
	}
	if c.Color == "" {
		c.Color = defaultCategoryColor
	}
	_, err = s.patchSettings(ctx, log.OpCreate, func(cur core.Settings, _ []core.Expense) (store.SettingsPatch, error) {
		return store.SettingsPatch{Categories: append(cur.Categories, c)}, nil
	})
	if err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (s *Store) RenameCategory(ctx context.Context, id, name string) error {
	name, err := cleanName("name", name)
	if err != nil {
		return err
	}
	_, err = s.patchSettings(ctx, log.OpUpdate, func(cur core.Settings, _ []core.Expense) (store.SettingsPatch, error) {
		cats := cur.Categories
		for i := range cats {
			if cats[i].ID == id {
				cats[i].Name = name
				return store.SettingsPatch{Categories: cats}, nil
			}
		}
		return store.SettingsPatch{}, notFound("category", id)
	})
	return err
}

// RemoveCategory fails with ErrCategoryInUse while any expense references
// the category. Its budget entry goes with it.
func (s *Store) RemoveCategory(ctx context.Context, id string) error {
	_, err := s.patchSettings(ctx, log.OpDelete, func(cur core.Settings, expenses []core.Expense) (store.SettingsPatch, error) {
		if _, ok := cur.Category(id); !ok {
			return store.SettingsPatch{}, notFound("category", id)
		}
		for _, e := range expenses {
			if e.CategoryID == id {
				return store.SettingsPatch{}, ErrCategoryInUse
			}
		}
		cats := make([]core.Category, 0, len(cur.Categories))
		for _, c := range cur.Categories {
			if c.ID != id {
				cats = append(cats, c)
			}
		}
		p := store.SettingsPatch{Categories: cats}
		if _, ok := cur.Budgets[id]; ok {
			budgets := core.CloneAmounts(cur.Budgets)
			delete(budgets, id)
			p.Budgets = budgets
		}
		return p, nil
	})
	return err
}

// AddSavingsGoal creates a goal with nothing saved yet.
func (s *Store) AddSavingsGoal(ctx context.Context, name string, target core.Money, description string) (core.SavingsGoal, error) {
	name, err := cleanName("name", name)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	if err := positive("targetAmount", target); err != nil {
		return core.SavingsGoal{}, err
	}
	g := core.SavingsGoal{
		ID:            uuid.NewString(),
		Name:          name,
		Description:   strings.TrimSpace(description),
		TargetAmount:  target,
		CurrentAmount: core.Zero,
		CreatedAt:     s.now().UTC(),
	}
	_, err = s.patchSettings(ctx, log.OpCreate, func(cur core.Settings, _ []core.Expense) (store.SettingsPatch, error) {
		return store.SettingsPatch{SavingsGoals: append(cur.SavingsGoals, g)}, nil
	})
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return g, nil
}

// UpdateSavingsGoal adds increment to the saved amount. Overshooting the
// target is allowed.
func (s *Store) UpdateSavingsGoal(ctx context.Context, id string, increment core.Money) (core.SavingsGoal, error) {
	if err := positive("amount", increment); err != nil {
		return core.SavingsGoal{}, err
	}
	var out core.SavingsGoal
	_, err := s.patchSettings(ctx, log.OpUpdate, func(cur core.Settings, _ []core.Expense) (store.SettingsPatch, error) {
		goal, i, ok := cur.SavingsGoal(id)
		if !ok {
			return store.SettingsPatch{}, notFound("savings goal", id)
		}
		goal.CurrentAmount = goal.CurrentAmount.Add(increment)
		goals := cur.SavingsGoals
		goals[i] = goal
		out = goal
		return store.SettingsPatch{SavingsGoals: goals}, nil
	})
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return out, nil
}

func (s *Store) RemoveSavingsGoal(ctx context.Context, id string) error {
	_, err := s.patchSettings(ctx, log.OpDelete, func(cur core.Settings, _ []core.Expense) (store.SettingsPatch, error) {
		_, i, ok := cur.SavingsGoal(id)
		if !ok {
			return store.SettingsPatch{}, notFound("savings goal", id)
		}
		goals := append(cur.SavingsGoals[:i:i], cur.SavingsGoals[i+1:]...)
		return store.SettingsPatch{SavingsGoals: goals}, nil
	})
	return err
}

// SetLanguage accepts any BCP 47 code that resolves to fr, en or es.
func (s *Store) SetLanguage(ctx context.Context, code string) error {
	lang, err := i18n.ParseLanguage(code)
	if err != nil {
		return err
	}
	_, err = s.patchSettings(ctx, log.OpUpdate, func(core.Settings, []core.Expense) (store.SettingsPatch, error) {
		return store.SettingsPatch{Language: &lang}, nil
	})
	return err
}

// SetCurrency changes the display symbol. Amounts are not converted.
func (s *Store) SetCurrency(ctx context.Context, symbol string) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return core.Invalid("currency", "required")
	}
	if utf8.RuneCountInString(symbol) > maxCurrencyLen {
		return core.Invalid("currency", "too long")
	}
	_, err := s.patchSettings(ctx, log.OpUpdate, func(core.Settings, []core.Expense) (store.SettingsPatch, error) {
		return store.SettingsPatch{Currency: &symbol}, nil
	})
	return err
}
