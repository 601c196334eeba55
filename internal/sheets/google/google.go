// Package google exports expense rows to a Google spreadsheet, one sheet per
// year named "<year> <base>".
package google

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"tazzio/internal/log"
	ports "tazzio/internal/sheets"
)

var _ ports.Exporter = (*Client)(nil)

type Config struct {
	SpreadsheetID string
	// SheetName is the base name; the row's year is prefixed to it.
	SheetName       string
	CredentialsJSON []byte
	// ClientOptions replace the credential options when set.
	ClientOptions []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	base          string
	logger        *log.Logger

	mu     sync.Mutex
	sheets map[string]int64 // title -> sheet id
}

// New creates a Sheets client authenticated with a service account key.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Expenses"
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	opts := cfg.ClientOptions
	if len(opts) == 0 {
		if len(cfg.CredentialsJSON) == 0 {
			return nil, errors.New("missing service account credentials")
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(cfg.CredentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	logger.Info("Sheets client ready", "spreadsheet_id", cfg.SpreadsheetID, "sheet_base", base)
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		base:          base,
		logger:        logger,
	}, nil
}

// Append writes r as the last row of its year's sheet, creating the sheet
// with a header row on first use.
func (c *Client) Append(ctx context.Context, r ports.Row) (string, error) {
	if r.ExpenseID == "" {
		return "", errors.New("row without expense id")
	}
	if r.Date.IsZero() {
		return "", fmt.Errorf("row %s: missing date", r.ExpenseID)
	}
	title := yearPrefixedName(c.base, r.Date.Year())
	if err := c.ensureSheet(ctx, title); err != nil {
		return "", err
	}

	rng := quoteSheet(title) + "!A:G"
	vr := &gsheet.ValueRange{Values: [][]any{r.Values()}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append %s: %w", rng, err)
	}
	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.DebugContext(ctx, "Row appended",
		log.FieldExpenseID, r.ExpenseID,
		log.FieldSheetsRef, ref)
	return ref, nil
}

// Delete removes the first row whose ID column equals expenseID, searching
// every sheet of this export.
func (c *Client) Delete(ctx context.Context, expenseID string) (bool, error) {
	if expenseID == "" {
		return false, nil
	}
	if err := c.refresh(ctx); err != nil {
		return false, err
	}
	for title, sheetID := range c.exportSheets() {
		rng := quoteSheet(title) + "!G:G"
		vals, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return false, fmt.Errorf("read %s: %w", rng, err)
		}
		for i, row := range vals.Values {
			if len(row) == 0 || fmt.Sprint(row[0]) != expenseID {
				continue
			}
			req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
				DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(i),
					EndIndex:        int64(i + 1),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				}},
			}}}
			if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
				return false, fmt.Errorf("delete row %d of %s: %w", i+1, title, err)
			}
			c.logger.InfoContext(ctx, "Row deleted",
				log.FieldExpenseID, expenseID,
				log.FieldSheetsRef, fmt.Sprintf("%s!A%d", quoteSheet(title), i+1))
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) exportSheets() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64)
	for title, id := range c.sheets {
		if title == c.base || strings.HasSuffix(title, " "+c.base) {
			out[title] = id
		}
	}
	return out
}

// refresh reloads the sheet titles of the spreadsheet.
func (c *Client) refresh(ctx context.Context) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	known := make(map[string]int64, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			known[s.Properties.Title] = s.Properties.SheetId
		}
	}
	c.mu.Lock()
	c.sheets = known
	c.mu.Unlock()
	return nil
}

func (c *Client) hasSheet(title string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sheets[title]
	return ok
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	if c.hasSheet(title) {
		return nil
	}
	if err := c.refresh(ctx); err != nil {
		return err
	}
	if c.hasSheet(title) {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}
	var id int64
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		id = resp.Replies[0].AddSheet.Properties.SheetId
	}

	header := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	rng := quoteSheet(title) + "!A1:G1"
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header %s: %w", rng, err)
	}

	c.mu.Lock()
	c.sheets[title] = id
	c.mu.Unlock()
	c.logger.InfoContext(ctx, "Sheet created", "title", title, "sheet_id", id)
	return nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with
// a four digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
