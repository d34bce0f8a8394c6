package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount_cents"`
	Count  int    `json:"count"`
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"` // 1-12
	Total      Money            `json:"total_cents"`
	Count      int              `json:"count"`
	Average    decimal.Decimal  `json:"average_cents"`
	Today      Money            `json:"today_cents"`
	ByCategory []CategoryAmount `json:"by_category"`
}
