package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"compras/internal/core"
)

// Direction classifies the change between two consecutive months.
type Direction string

const (
	Increase  Direction = "increase"
	Decrease  Direction = "decrease"
	Unchanged Direction = "unchanged"
)

// Trend compares a month with the one before it. Percent is the magnitude of
// the change relative to the previous total, rounded to one decimal.
type Trend struct {
	Delta     core.Money      `json:"delta_cents"`
	Percent   decimal.Decimal `json:"percent"`
	Direction Direction       `json:"direction"`
}

// MonthSummary totals one (year, month) group. Average is the total divided
// by the number of purchases, in cents.
type MonthSummary struct {
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	Total   core.Money      `json:"total_cents"`
	Count   int             `json:"count"`
	Average decimal.Decimal `json:"average_cents"`
	Trend   *Trend          `json:"trend,omitempty"`
}

// SummarizeMonths groups purchases by their stored year and month, newest
// month first.
func SummarizeMonths(purchases []core.PurchaseWithStore) []MonthSummary {
	type key struct{ year, month int }
	groups := make(map[key]*MonthSummary)
	for _, p := range purchases {
		k := key{year: p.Year, month: p.Month}
		s := groups[k]
		if s == nil {
			s = &MonthSummary{Year: p.Year, Month: p.Month}
			groups[k] = s
		}
		s.Total.Cents += p.Total().Cents
		s.Count++
	}

	out := make([]MonthSummary, 0, len(groups))
	for _, s := range groups {
		s.Average = decimal.Zero
		if s.Count > 0 {
			s.Average = decimal.NewFromInt(s.Total.Cents).Div(decimal.NewFromInt(int64(s.Count)))
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out
}

// Trends returns a copy of summaries, which must be newest first, with each
// entry compared to the next one. The oldest entry has no trend.
func Trends(summaries []MonthSummary) []MonthSummary {
	out := append([]MonthSummary(nil), summaries...)
	for i := 0; i+1 < len(out); i++ {
		t := CompareMonths(out[i], out[i+1])
		out[i].Trend = &t
	}
	return out
}

// CompareMonths computes the trend from previous to current.
func CompareMonths(current, previous MonthSummary) Trend {
	delta := current.Total.Cents - previous.Total.Cents
	t := Trend{Delta: core.Money{Cents: delta}, Direction: Unchanged}
	switch {
	case delta > 0:
		t.Direction = Increase
	case delta < 0:
		t.Direction = Decrease
	}
	magnitude := delta
	if magnitude < 0 {
		magnitude = -magnitude
	}
	t.Percent = percentOf(magnitude, previous.Total.Cents)
	return t
}

// MonthDetail returns the purchases stored under year and month, newest first.
func MonthDetail(purchases []core.PurchaseWithStore, year, month int) []core.PurchaseWithStore {
	out := make([]core.PurchaseWithStore, 0)
	for _, p := range purchases {
		if p.Year == year && p.Month == month {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out
}

// Dashboard summarises the month containing today: total, count, average,
// today's spend and a per-category split, largest first.
func Dashboard(purchases []core.PurchaseWithStore, today core.Date) core.MonthOverview {
	ov := core.MonthOverview{Year: today.Year(), Month: today.Month(), Average: decimal.Zero}
	byCat := make(map[string]*core.CategoryAmount)
	for _, p := range purchases {
		if p.Year != ov.Year || p.Month != ov.Month {
			continue
		}
		total := p.Total().Cents
		ov.Total.Cents += total
		ov.Count++
		if p.Date.Equal(today.Time) {
			ov.Today.Cents += total
		}
		c := byCat[string(p.Category)]
		if c == nil {
			c = &core.CategoryAmount{Name: string(p.Category)}
			byCat[string(p.Category)] = c
		}
		c.Amount.Cents += total
		c.Count++
	}
	if ov.Count > 0 {
		ov.Average = decimal.NewFromInt(ov.Total.Cents).Div(decimal.NewFromInt(int64(ov.Count)))
	}
	ov.ByCategory = make([]core.CategoryAmount, 0, len(byCat))
	for _, c := range byCat {
		ov.ByCategory = append(ov.ByCategory, *c)
	}
	sort.Slice(ov.ByCategory, func(i, j int) bool {
		if ov.ByCategory[i].Amount.Cents != ov.ByCategory[j].Amount.Cents {
			return ov.ByCategory[i].Amount.Cents > ov.ByCategory[j].Amount.Cents
		}
		return ov.ByCategory[i].Name < ov.ByCategory[j].Name
	})
	return ov
}
