// Package memory is an in-process sheets.Exporter that records rows.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tazzio/internal/sheets"
)

var _ sheets.Exporter = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	rows []sheets.Row
	next int
}

func New() *Store {
	return &Store{}
}

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, r sheets.Row) (string, error) {
	if r.ExpenseID == "" {
		return "", errors.New("row without expense id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
	s.next++
	return fmt.Sprintf("mem:%d", s.next), nil
}

func (s *Store) Delete(_ context.Context, expenseID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rows {
		if r.ExpenseID == expenseID {
			s.rows = append(s.rows[:i:i], s.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Rows returns a copy of the recorded rows in append order.
func (s *Store) Rows() []sheets.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.Row(nil), s.rows...)
}
