package analytics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"compras/internal/core"
)

// DateRange is an inclusive calendar range. A zero bound is open.
type DateRange struct {
	Start core.Date
	End   core.Date
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d core.Date) bool {
	if !r.Start.IsZero() && d.Before(r.Start.Time) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End.Time) {
		return false
	}
	return true
}

// StoreAverage is the weighted unit price a store charged within a category.
type StoreAverage struct {
	StoreID       string          `json:"store_id"`
	StoreName     string          `json:"store_name"`
	TotalSpent    core.Money      `json:"total_spent_cents"`
	TotalQuantity int             `json:"total_quantity"`
	Purchases     int             `json:"purchases"`
	AveragePrice  decimal.Decimal `json:"average_price_cents"`
}

// CategoryComparison ranks the stores that sold a category, cheapest first.
type CategoryComparison struct {
	Category        core.Category   `json:"category"`
	Stores          []StoreAverage  `json:"stores"`
	BestStore       StoreAverage    `json:"best_store"`
	WorstStore      StoreAverage    `json:"worst_store"`
	PotentialSaving decimal.Decimal `json:"potential_saving_cents"`
}

// BreakdownEntry is one purchase line in a product drill-down.
type BreakdownEntry struct {
	StoreID   string     `json:"store_id,omitempty"`
	StoreName string     `json:"store_name,omitempty"`
	UnitPrice core.Money `json:"unit_price_cents"`
	Quantity  int        `json:"quantity"`
	Date      core.Date  `json:"date"`
}

// ProductDetail lists every purchase of one product, newest first.
type ProductDetail struct {
	Name     string           `json:"name"`
	Category core.Category    `json:"category"`
	Entries  []BreakdownEntry `json:"entries"`
}

// CompareStoresByCategory accumulates spend and quantity per (category, store)
// for purchases inside r, and keeps the categories bought at two or more
// stores. Purchases without a store are skipped. Results are ordered by
// potential saving, highest first.
func CompareStoresByCategory(purchases []core.PurchaseWithStore, r DateRange) []CategoryComparison {
	type key struct {
		category core.Category
		storeID  string
	}
	stats := make(map[key]*StoreAverage)
	var order []key
	for _, p := range purchases {
		if p.StoreID == "" || !r.Contains(p.Date) {
			continue
		}
		k := key{category: p.Category, storeID: p.StoreID}
		s := stats[k]
		if s == nil {
			s = &StoreAverage{StoreID: p.StoreID, StoreName: p.StoreID}
			if p.Store != nil {
				s.StoreName = p.Store.Name
			}
			stats[k] = s
			order = append(order, k)
		}
		s.TotalSpent.Cents += p.Total().Cents
		s.TotalQuantity += p.Quantity
		s.Purchases++
	}

	byCategory := make(map[core.Category][]StoreAverage)
	for _, k := range order {
		s := stats[k]
		s.AveragePrice = decimal.Zero
		if s.TotalQuantity > 0 {
			s.AveragePrice = decimal.NewFromInt(s.TotalSpent.Cents).Div(decimal.NewFromInt(int64(s.TotalQuantity)))
		}
		byCategory[k.category] = append(byCategory[k.category], *s)
	}

	out := make([]CategoryComparison, 0, len(byCategory))
	for cat, stores := range byCategory {
		if len(stores) < 2 {
			continue
		}
		sort.SliceStable(stores, func(i, j int) bool {
			if c := stores[i].AveragePrice.Cmp(stores[j].AveragePrice); c != 0 {
				return c < 0
			}
			return stores[i].StoreName < stores[j].StoreName
		})
		best, worst := stores[0], stores[len(stores)-1]
		out = append(out, CategoryComparison{
			Category:        cat,
			Stores:          stores,
			BestStore:       best,
			WorstStore:      worst,
			PotentialSaving: worst.AveragePrice.Sub(best.AveragePrice),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].PotentialSaving.Cmp(out[j].PotentialSaving); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ProductBreakdown regroups purchases inside r by category and product name.
// Names are matched after trimming and case folding; the first spelling seen
// is kept for display.
func ProductBreakdown(purchases []core.PurchaseWithStore, r DateRange) []ProductDetail {
	type key struct {
		category core.Category
		name     string
	}
	groups := make(map[key]*ProductDetail)
	for _, p := range purchases {
		if !r.Contains(p.Date) {
			continue
		}
		k := key{category: p.Category, name: normalizeName(p.Name)}
		d := groups[k]
		if d == nil {
			d = &ProductDetail{Name: strings.TrimSpace(p.Name), Category: p.Category}
			groups[k] = d
		}
		e := BreakdownEntry{
			StoreID:   p.StoreID,
			UnitPrice: p.UnitPrice,
			Quantity:  p.Quantity,
			Date:      p.Date,
		}
		if p.Store != nil {
			e.StoreName = p.Store.Name
		}
		d.Entries = append(d.Entries, e)
	}

	out := make([]ProductDetail, 0, len(groups))
	for _, d := range groups {
		sort.SliceStable(d.Entries, func(i, j int) bool {
			return d.Entries[i].Date.After(d.Entries[j].Date.Time)
		})
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return normalizeName(out[i].Name) < normalizeName(out[j].Name)
	})
	return out
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
