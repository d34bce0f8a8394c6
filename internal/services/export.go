package services

import (
	"context"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"compras/internal/core"
	"compras/internal/sheets"
	"compras/internal/storage"
)

// purchaseCSVRow is one line of the purchases export.
type purchaseCSVRow struct {
	ID        string `csv:"id"`
	Date      string `csv:"date"`
	Name      string `csv:"name"`
	Category  string `csv:"category"`
	Store     string `csv:"store"`
	UnitPrice string `csv:"unit_price"`
	Quantity  int    `csv:"quantity"`
	Total     string `csv:"total"`
}

func toCSVRows(purchases []core.PurchaseWithStore) []*purchaseCSVRow {
	rows := make([]*purchaseCSVRow, 0, len(purchases))
	for _, p := range purchases {
		row := &purchaseCSVRow{
			ID:        p.ID,
			Date:      p.Date.String(),
			Name:      sheets.EscapeCell(p.Name),
			Category:  sheets.EscapeCell(string(p.Category)),
			UnitPrice: p.UnitPrice.String(),
			Quantity:  p.Quantity,
			Total:     p.Total().String(),
		}
		if p.Store != nil {
			row.Store = sheets.EscapeCell(p.Store.Name)
		}
		rows = append(rows, row)
	}
	return rows
}

// ExportCSV writes the owner's purchases matching f as CSV to w.
func (s *PurchaseService) ExportCSV(ctx context.Context, ownerID string, f storage.PurchaseFilter, w io.Writer) (int, error) {
	purchases, err := s.List(ctx, ownerID, f)
	if err != nil {
		return 0, err
	}
	if err := gocsv.Marshal(toCSVRows(purchases), w); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(purchases), nil
}
