package google

import (
	"fmt"
	"strconv"
	"strings"
)

// a1 builds an A1 range on sheet, quoting names that need it.
func a1(sheet, rng string) string {
	if needsQuote(sheet) {
		sheet = "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet + "!" + rng
}

func needsQuote(sheet string) bool {
	for _, r := range sheet {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

// parseRowNumber extracts the first row number from a range such as
// "Compras!A12:K12" or "'Mis compras'!A3".
func parseRowNumber(rng string) (int, error) {
	cell := rng
	if i := strings.LastIndex(cell, "!"); i >= 0 {
		cell = cell[i+1:]
	}
	if i := strings.Index(cell, ":"); i >= 0 {
		cell = cell[:i]
	}
	digits := strings.TrimLeftFunc(cell, func(r rune) bool {
		return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r == '$'
	})
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("no row number in range %q", rng)
	}
	return n, nil
}

func firstCell(values [][]any, i int) string {
	if i >= len(values) || len(values[i]) == 0 {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(values[i][0]))
}

func toValues(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
