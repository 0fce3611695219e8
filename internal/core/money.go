// Package core provides the transaction model shared by every binary.
//
// This file contains amount parsing and formatting. Amounts travel as
// decimal strings ("-12.05") and are handled internally as integer cents.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a decimal string to cents.
//
// Negative values are debits. At most two fractional digits are accepted,
// so "1.005" is an error rather than a silently rounded value.
//
// Examples:
//
//	ParseAmount("12.34") -> 1234, nil
//	ParseAmount("-0.5")  -> -50, nil
//	ParseAmount("7")     -> 700, nil
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidAmount, s, err)
	}
	cents := d.Mul(hundred)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("%w %q: more than two decimal places", ErrInvalidAmount, s)
	}
	if !cents.Abs().LessThan(decimal.NewFromInt(1 << 62)) {
		return 0, fmt.Errorf("%w %q: out of range", ErrInvalidAmount, s)
	}
	return cents.IntPart(), nil
}

// FormatCents renders cents as a decimal string with two fraction digits.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// FormatDollars renders cents for display, e.g. "-$1,234.05".
func FormatDollars(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := fmt.Sprintf("%d", cents/100)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	s := fmt.Sprintf("$%s.%02d", b.String(), cents%100)
	if neg {
		return "-" + s
	}
	return s
}
