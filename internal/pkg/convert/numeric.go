// Package convert provides numeric conversion helpers for exchange payloads.
package convert

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseFloat parses exchange numeric strings ("1.10000", " 2345.1 ").
// Returns 0 on empty or malformed input.
func ParseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// Places returns the number of decimal places of a tick size string or
// value, e.g. "0.00010000" -> 4, 0.01 -> 2, 1 -> 0.
func Places(tick float64) int32 {
	d := decimal.NewFromFloat(tick)
	if d.Sign() <= 0 {
		return 0
	}
	if exp := d.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// FormatPrice renders v rounded to places decimal digits without exponent.
func FormatPrice(v float64, places int32) string {
	return decimal.NewFromFloat(v).Round(places).StringFixed(places)
}

// FormatQty renders a quantity, trimming trailing zeros.
func FormatQty(v float64) string {
	return decimal.NewFromFloat(v).String()
}
