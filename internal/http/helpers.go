package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"compras/internal/core"
	"compras/internal/storage"
)

// queryInt reads an optional integer query parameter. Absent means 0.
func queryInt(q url.Values, key string) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}
	return n, nil
}

// queryDate reads an optional YYYY-MM-DD query parameter.
func queryDate(q url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := parseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %s must be a YYYY-MM-DD date", errBadRequest, key)
	}
	return d, nil
}

// parseYearMonth reads the {year} and {month} path values.
func parseYearMonth(r *http.Request) (year, month int, err error) {
	year, err = strconv.Atoi(r.PathValue("year"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid year", errBadRequest)
	}
	month, err = strconv.Atoi(r.PathValue("month"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid month", errBadRequest)
	}
	return year, month, nil
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (core.Date, error) {
	return core.ParseDate(strings.TrimSpace(dateStr))
}

// purchaseFilterFromQuery builds the list filter from q, category, year,
// month, from and to.
func purchaseFilterFromQuery(q url.Values) (storage.PurchaseFilter, error) {
	var (
		f   storage.PurchaseFilter
		err error
	)
	f.Query = sanitizeInput(q.Get("q"))
	if c := sanitizeInput(q.Get("category")); c != "" {
		f.Category = core.Category(c)
		if !f.Category.IsValid() {
			return f, core.ErrInvalidCategory
		}
	}
	if f.Year, err = queryInt(q, "year"); err != nil {
		return f, err
	}
	if f.Month, err = queryInt(q, "month"); err != nil {
		return f, err
	}
	if f.From, err = queryDate(q, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(q, "to"); err != nil {
		return f, err
	}
	return f, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
