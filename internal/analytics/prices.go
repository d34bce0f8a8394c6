// Package analytics derives comparisons and summaries from already-loaded
// purchases and prices. Every function here is a pure transform: no I/O, no
// shared state, and the inputs are never modified.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"compras/internal/core"
)

var hundred = decimal.NewFromInt(100)

// StorePrice is one store's current price for a product.
type StorePrice struct {
	StoreID     string     `json:"store_id"`
	StoreName   string     `json:"store_name"`
	Price       core.Money `json:"price_cents"`
	LastUpdated core.Date  `json:"last_updated"`
}

// PriceComparison is the per-product result of ComparePrices.
type PriceComparison struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Category    core.Category   `json:"category"`
	Prices      []StorePrice    `json:"prices"` // ascending
	Best        StorePrice      `json:"best"`
	Worst       StorePrice      `json:"worst"`
	MaxSaving   core.Money      `json:"max_saving_cents"`
	SavingPct   decimal.Decimal `json:"saving_pct"`
}

// CategoryRollup summarises the comparable products of one category.
type CategoryRollup struct {
	Category      core.Category   `json:"category"`
	Products      int             `json:"products"`
	AverageSaving decimal.Decimal `json:"average_saving_cents"`
	BestStoreID   string          `json:"best_store_id"`
	BestStore     string          `json:"best_store"`
	BestStoreWins int             `json:"best_store_wins"`
}

// ComparePrices returns one comparison per product that has prices from at
// least two distinct stores, in the order products are given. Non-positive
// prices are ignored, and a repeated store keeps its first price.
func ComparePrices(products []core.Product, prices []core.PriceWithStore) []PriceComparison {
	byProduct := make(map[string][]StorePrice, len(products))
	seen := make(map[string]map[string]bool, len(products))
	for _, p := range prices {
		if p.Price.Cents <= 0 {
			continue
		}
		if seen[p.ProductID] == nil {
			seen[p.ProductID] = make(map[string]bool)
		}
		if seen[p.ProductID][p.StoreID] {
			continue
		}
		seen[p.ProductID][p.StoreID] = true
		byProduct[p.ProductID] = append(byProduct[p.ProductID], StorePrice{
			StoreID:     p.StoreID,
			StoreName:   p.Store.Name,
			Price:       p.Price,
			LastUpdated: p.LastUpdated,
		})
	}

	out := make([]PriceComparison, 0)
	for _, product := range products {
		list := byProduct[product.ID]
		if len(list) < 2 {
			continue
		}
		sorted := append([]StorePrice(nil), list...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Price.Cents < sorted[j].Price.Cents
		})
		best, worst := sorted[0], sorted[len(sorted)-1]
		saving := worst.Price.Cents - best.Price.Cents
		out = append(out, PriceComparison{
			ProductID:   product.ID,
			ProductName: product.Name,
			Category:    product.Category,
			Prices:      sorted,
			Best:        best,
			Worst:       worst,
			MaxSaving:   core.Money{Cents: saving},
			SavingPct:   percentOf(saving, worst.Price.Cents),
		})
	}
	return out
}

// RollupCategories groups comparisons by category. The best store is the one
// most often cheapest; ties go to the alphabetically first store name.
// Categories are ordered by average saving, highest first.
func RollupCategories(comparisons []PriceComparison) []CategoryRollup {
	type acc struct {
		products int
		saving   int64
		wins     map[string]int
		names    map[string]string
	}
	groups := make(map[core.Category]*acc)
	for _, c := range comparisons {
		a := groups[c.Category]
		if a == nil {
			a = &acc{wins: make(map[string]int), names: make(map[string]string)}
			groups[c.Category] = a
		}
		a.products++
		a.saving += c.MaxSaving.Cents
		a.wins[c.Best.StoreID]++
		a.names[c.Best.StoreID] = c.Best.StoreName
	}

	out := make([]CategoryRollup, 0, len(groups))
	for cat, a := range groups {
		r := CategoryRollup{
			Category:      cat,
			Products:      a.products,
			AverageSaving: decimal.NewFromInt(a.saving).Div(decimal.NewFromInt(int64(a.products))),
		}
		for id, wins := range a.wins {
			name := a.names[id]
			if wins > r.BestStoreWins ||
				(wins == r.BestStoreWins && (name < r.BestStore || (name == r.BestStore && id < r.BestStoreID))) {
				r.BestStoreID, r.BestStore, r.BestStoreWins = id, name, wins
			}
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].AverageSaving.Cmp(out[j].AverageSaving); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// percentOf returns part/whole*100 rounded to one decimal, or zero when whole
// is zero.
func percentOf(part, whole int64) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(whole)).Round(1)
}
