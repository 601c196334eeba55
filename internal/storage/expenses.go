package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"tazzio/internal/core"
	"tazzio/internal/log"
	"tazzio/internal/store"
)

func (r *Repository) InsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.ID = uuid.NewString()
	e.CreatedAt = r.now().UTC()
	_, err := r.exec(ctx, r.db, `
		INSERT INTO expenses (id, user_id, amount, category_id, buyer_id, description, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Amount, e.CategoryID, e.BuyerID, e.Description, e.Date.String(), formatTime(e.CreatedAt))
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	r.logger.InfoContext(ctx, "Expense saved",
		log.FieldExpenseID, e.ID,
		log.FieldUserID, e.UserID,
		log.FieldAmount, e.Amount.String(),
		log.FieldCategoryID, e.CategoryID)
	return e, nil
}

func (r *Repository) ReplaceExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.exec(ctx, r.db, `
		UPDATE expenses SET amount = ?, category_id = ?, buyer_id = ?, description = ?, date = ?
		WHERE id = ? AND user_id = ?`,
		e.Amount, e.CategoryID, e.BuyerID, e.Description, e.Date.String(), e.ID, e.UserID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Expense{}, store.ErrNotFound
	}
	var created dbTime
	if err := r.queryRow(ctx, r.db, `SELECT created_at FROM expenses WHERE id = ?`, e.ID).Scan(&created); err != nil {
		return core.Expense{}, fmt.Errorf("select expense: %w", err)
	}
	e.CreatedAt = created.Time
	return e, nil
}

func (r *Repository) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := r.exec(ctx, r.db, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.query(ctx, r.db, `
		SELECT id, user_id, amount, category_id, buyer_id, description, date, created_at
		FROM expenses WHERE user_id = ?
		ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		var (
			e             core.Expense
			date, created dbTime
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.CategoryID, &e.BuyerID, &e.Description, &date, &created); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date = core.DateOf(date.Time)
		e.CreatedAt = created.Time
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}
