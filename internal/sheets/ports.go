package sheets

import (
	"context"
	"strconv"

	"compras/internal/core"
)

// Ports for outbound adapters.
type (
	// PurchaseExporter mirrors purchases into an external spreadsheet. Both
	// operations are idempotent.
	PurchaseExporter interface {
		UpsertPurchase(ctx context.Context, row PurchaseRow) error
		DeletePurchase(ctx context.Context, id string) error
	}
)

// Header is the first row of the export sheet, columns A to K.
var Header = []string{"ID", "Date", "Year", "Month", "Name", "Category", "Store", "Unit price", "Quantity", "Total", "Owner"}

// PurchaseRow is one exported purchase.
type PurchaseRow struct {
	ID        string
	Date      string
	Year      int
	Month     int
	Name      string
	Category  string
	Store     string
	UnitPrice core.Money
	Quantity  int
	Total     core.Money
	OwnerID   string
}

// RowFromPurchase flattens a purchase and its store into an export row.
func RowFromPurchase(p core.PurchaseWithStore) PurchaseRow {
	row := PurchaseRow{
		ID:        p.ID,
		Date:      p.Date.String(),
		Year:      p.Year,
		Month:     p.Month,
		Name:      p.Name,
		Category:  string(p.Category),
		UnitPrice: p.UnitPrice,
		Quantity:  p.Quantity,
		Total:     p.Total(),
		OwnerID:   p.OwnerID,
	}
	if p.Store != nil {
		row.Store = p.Store.Name
	}
	return row
}

// EscapeCell prefixes user text that a spreadsheet would read as a formula
// with a quote, so it is stored as literal text.
func EscapeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// Strings renders the row in column order. Text cells are escaped.
func (r PurchaseRow) Strings() []string {
	return []string{
		r.ID,
		r.Date,
		strconv.Itoa(r.Year),
		strconv.Itoa(r.Month),
		EscapeCell(r.Name),
		EscapeCell(r.Category),
		EscapeCell(r.Store),
		r.UnitPrice.String(),
		strconv.Itoa(r.Quantity),
		r.Total.String(),
		r.OwnerID,
	}
}
