// Package worker consumes domain events and exports expenses to a spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"tazzio/internal/amqp"
	"tazzio/internal/core"
	"tazzio/internal/log"
	"tazzio/internal/sheets"
	"tazzio/internal/store"
)

// Stats counts handled events since start.
type Stats struct {
	Exported      int64 `json:"exported"`
	Updated       int64 `json:"updated"`
	Deleted       int64 `json:"deleted"`
	Skipped       int64 `json:"skipped"`
	ResetRequests int64 `json:"resetRequests"`
	Failures      int64 `json:"failures"`
}

// ExportWorker handles the events published by the data store.
type ExportWorker struct {
	settings store.SettingsStore
	exporter sheets.Exporter
	logger   *log.Logger
	now      func() time.Time

	exported, updated, deleted, skipped, resets, failures atomic.Int64
}

// NewExportWorker returns a worker writing to exporter. A nil exporter turns
// expense events into no-ops.
func NewExportWorker(settings store.SettingsStore, exporter sheets.Exporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		settings: settings,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// Handle dispatches msg by type. A returned error requeues the message.
func (w *ExportWorker) Handle(ctx context.Context, msg *amqp.Message) error {
	var err error
	switch msg.Type {
	case amqp.TypeExpenseCreated:
		err = w.handleCreated(ctx, msg)
	case amqp.TypeExpenseUpdated:
		err = w.handleUpdated(ctx, msg)
	case amqp.TypeExpenseDeleted:
		err = w.handleDeleted(ctx, msg)
	case amqp.TypePasswordResetRequested:
		w.handleResetRequested(ctx, msg)
	default:
		w.skipped.Add(1)
		w.logger.WarnContext(ctx, "Ignoring unknown message", log.FieldMessageType, msg.Type)
	}
	if err != nil {
		w.failures.Add(1)
	}
	return err
}

func (w *ExportWorker) handleCreated(ctx context.Context, msg *amqp.Message) error {
	if w.exporter == nil {
		w.skipped.Add(1)
		w.logger.DebugContext(ctx, "Sheets export disabled, skipping", log.FieldExpenseID, msg.ExpenseID)
		return nil
	}
	row, err := w.rowFor(ctx, *msg.Expense)
	if err != nil {
		return err
	}
	ref, err := w.exporter.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("export expense %s: %w", row.ExpenseID, err)
	}
	w.exported.Add(1)
	w.logger.InfoContext(ctx, "Expense exported",
		log.FieldUserID, row.UserID,
		log.FieldExpenseID, row.ExpenseID,
		log.FieldSheetsRef, ref)
	return nil
}

// handleUpdated replaces the exported row. The new row is appended to the
// sheet of its (possibly changed) year.
func (w *ExportWorker) handleUpdated(ctx context.Context, msg *amqp.Message) error {
	if w.exporter == nil {
		w.skipped.Add(1)
		return nil
	}
	row, err := w.rowFor(ctx, *msg.Expense)
	if err != nil {
		return err
	}
	found, err := w.exporter.Delete(ctx, row.ExpenseID)
	if err != nil {
		return fmt.Errorf("remove exported expense %s: %w", row.ExpenseID, err)
	}
	ref, err := w.exporter.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("export expense %s: %w", row.ExpenseID, err)
	}
	w.updated.Add(1)
	w.logger.InfoContext(ctx, "Exported expense updated",
		log.FieldUserID, row.UserID,
		log.FieldExpenseID, row.ExpenseID,
		log.FieldSheetsRef, ref,
		"replaced", found)
	return nil
}

func (w *ExportWorker) handleDeleted(ctx context.Context, msg *amqp.Message) error {
	if w.exporter == nil {
		w.skipped.Add(1)
		return nil
	}
	found, err := w.exporter.Delete(ctx, msg.ExpenseID)
	if err != nil {
		return fmt.Errorf("remove exported expense %s: %w", msg.ExpenseID, err)
	}
	if !found {
		w.skipped.Add(1)
		w.logger.InfoContext(ctx, "Deleted expense was never exported",
			log.FieldUserID, msg.UserID,
			log.FieldExpenseID, msg.ExpenseID)
		return nil
	}
	w.deleted.Add(1)
	w.logger.InfoContext(ctx, "Exported expense removed",
		log.FieldUserID, msg.UserID,
		log.FieldExpenseID, msg.ExpenseID)
	return nil
}

// handleResetRequested records the request for the mailer. The token stays
// in the message and is never logged.
func (w *ExportWorker) handleResetRequested(ctx context.Context, msg *amqp.Message) {
	w.resets.Add(1)
	w.logger.InfoContext(ctx, "Password reset requested",
		"email", msg.Email,
		"has_token", msg.ResetToken != "",
		"requested_at", msg.Timestamp)
}

// rowFor resolves category and buyer names from the owner's settings. An
// identity without a settings document gets the default names; unknown ids
// are exported as-is.
func (w *ExportWorker) rowFor(ctx context.Context, e core.Expense) (sheets.Row, error) {
	settings, err := w.settings.GetSettings(ctx, e.UserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		settings = core.DefaultSettings(e.UserID, w.now())
	case err != nil:
		return sheets.Row{}, fmt.Errorf("settings of %s: %w", e.UserID, err)
	}

	row := sheets.Row{
		ExpenseID:   e.ID,
		UserID:      e.UserID,
		Date:        e.Date,
		Category:    e.CategoryID,
		Buyer:       e.BuyerID,
		Description: e.Description,
		Amount:      e.Amount,
		Currency:    settings.Currency,
	}
	if c, ok := settings.Category(e.CategoryID); ok {
		row.Category = c.Name
	}
	if b, ok := settings.Buyer(e.BuyerID); ok {
		row.Buyer = b.Name
	}
	if row.Currency == "" {
		row.Currency = core.DefaultCurrency
	}
	return row, nil
}

func (w *ExportWorker) Stats() Stats {
	return Stats{
		Exported:      w.exported.Load(),
		Updated:       w.updated.Load(),
		Deleted:       w.deleted.Load(),
		Skipped:       w.skipped.Load(),
		ResetRequests: w.resets.Load(),
		Failures:      w.failures.Load(),
	}
}
