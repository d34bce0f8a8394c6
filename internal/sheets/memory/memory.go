package memory

import (
	"context"
	"errors"
	"sync"

	ports "compras/internal/sheets"
)

var _ ports.PurchaseExporter = (*Store)(nil)

// Store keeps exported rows in memory, in insertion order. It stands in for
// the spreadsheet in development and tests.
type Store struct {
	mu   sync.Mutex
	rows []ports.PurchaseRow
}

func New() *Store {
	return &Store{}
}

// UpsertPurchase replaces the row with the same ID or appends a new one.
func (s *Store) UpsertPurchase(_ context.Context, row ports.PurchaseRow) error {
	if row.ID == "" {
		return errors.New("row id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == row.ID {
			s.rows[i] = row
			return nil
		}
	}
	s.rows = append(s.rows, row)
	return nil
}

// DeletePurchase removes the row with the given ID, if any.
func (s *Store) DeletePurchase(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the stored rows.
func (s *Store) Rows() []ports.PurchaseRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.PurchaseRow(nil), s.rows...)
}
