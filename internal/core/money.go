// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between integer cents and decimal representations.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxCents caps a single price at 100,000,000.00 so totals stay far from
// int64 overflow.
const MaxCents int64 = 10_000_000_000

var (
	maxAmount = decimal.New(MaxCents, -2)
	hundred   = decimal.NewFromInt(100)
)

// Money is an amount in integer cents.
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxCents {
		return ErrInvalidPrice
	}
	return nil
}

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Only ASCII digits and a single
// separator are allowed. Returns ErrInvalidPrice for invalid formats, zero,
// negative amounts, or amounts above MaxCents.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil (rounds up)
//	ParseDecimalToCents("12.344") -> 1234, nil (rounds down)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || s == "." || strings.Count(s, ".") > 1 {
		return 0, ErrInvalidPrice
	}
	for i := 0; i < len(s); i++ {
		if (s[i] < '0' || s[i] > '9') && s[i] != '.' {
			return 0, ErrInvalidPrice
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidPrice
	}
	// Round rounds half away from zero, which is half-up for positive amounts.
	d = d.Round(2)
	if !d.IsPositive() || d.GreaterThan(maxAmount) {
		return 0, ErrInvalidPrice
	}
	return d.Mul(hundred).IntPart(), nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimals, e.g. "12.34".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as integer cents.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.Cents, 10)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	c, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return ErrInvalidPrice
	}
	m.Cents = c
	return nil
}
