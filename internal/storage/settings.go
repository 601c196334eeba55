package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tazzio/internal/core"
	"tazzio/internal/store"
)

const selectSettings = `
	SELECT user_id, language, currency, buyer_incomes, categories, buyers, budgets, savings_goals, updated_at
	FROM settings WHERE user_id = ?`

const upsertSettings = `
	INSERT INTO settings (user_id, language, currency, total_income, buyer_incomes, categories, buyers, budgets, savings_goals, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (user_id) DO UPDATE SET
		language = excluded.language,
		currency = excluded.currency,
		total_income = excluded.total_income,
		buyer_incomes = excluded.buyer_incomes,
		categories = excluded.categories,
		buyers = excluded.buyers,
		budgets = excluded.budgets,
		savings_goals = excluded.savings_goals,
		updated_at = excluded.updated_at`

func (r *Repository) GetSettings(ctx context.Context, userID string) (core.Settings, error) {
	return r.getSettings(ctx, r.db, userID)
}

func (r *Repository) getSettings(ctx context.Context, q querier, userID string) (core.Settings, error) {
	var (
		s                                           core.Settings
		lang                                        string
		incomes, categories, buyers, budgets, goals string
		updated                                     dbTime
	)
	err := r.queryRow(ctx, q, selectSettings, userID).
		Scan(&s.UserID, &lang, &s.Currency, &incomes, &categories, &buyers, &budgets, &goals, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settings{}, store.ErrNotFound
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("select settings: %w", err)
	}
	s.Language = core.Language(lang)
	s.UpdatedAt = updated.Time

	for _, f := range []struct {
		name string
		raw  string
		dst  any
	}{
		{"buyer_incomes", incomes, &s.BuyerIncomes},
		{"categories", categories, &s.Categories},
		{"buyers", buyers, &s.Buyers},
		{"budgets", budgets, &s.Budgets},
		{"savings_goals", goals, &s.SavingsGoals},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return core.Settings{}, fmt.Errorf("decode settings %s: %w", f.name, err)
		}
	}
	s.Normalize()
	return s, nil
}

func (r *Repository) UpsertSettings(ctx context.Context, s core.Settings) error {
	s.UpdatedAt = r.now().UTC()
	return r.upsertSettings(ctx, r.db, s)
}

func (r *Repository) upsertSettings(ctx context.Context, q querier, s core.Settings) error {
	s.Normalize()
	args := []any{s.UserID, string(s.Language), s.Currency, s.TotalIncome()}
	for _, v := range []any{s.BuyerIncomes, s.Categories, s.Buyers, s.Budgets, s.SavingsGoals} {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		args = append(args, string(b))
	}
	args = append(args, formatTime(s.UpdatedAt))
	if _, err := r.exec(ctx, q, upsertSettings, args...); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// PatchSettings runs read-merge-write in one transaction.
func (r *Repository) PatchSettings(ctx context.Context, userID string, p store.SettingsPatch) (core.Settings, error) {
	var out core.Settings
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := r.getSettings(ctx, tx, userID)
		if err != nil {
			return err
		}
		out = p.Apply(cur, r.now())
		return r.upsertSettings(ctx, tx, out)
	})
	return out, err
}
