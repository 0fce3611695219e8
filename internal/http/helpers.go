package http

import (
	"fmt"
	"html/template"
	"strings"

	"expenses/internal/core"
)

var templateFuncs = template.FuncMap{
	"dollars": core.FormatDollars,
	"pct":     formatPercent,
	"isoDate": isoDate,
	"join":    strings.Join,
	"dict":    dict,
}

// dict builds a map from key/value pairs for passing several values to a
// nested template.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[key] = kv[i+1]
	}
	return m, nil
}

// formatPercent renders a share with one decimal, e.g. "12.5%".
func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// isoDate renders d for an <input type="date">.
func isoDate(d *core.Date) string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// displayAmount formats a wire amount for the table, keeping the raw
// text when it does not parse.
func displayAmount(amount string) (text string, debit bool) {
	cents, err := core.ParseAmount(amount)
	if err != nil {
		return amount, false
	}
	return core.FormatDollars(cents), core.DirectionOf(cents) == core.Debit
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
