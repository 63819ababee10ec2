/*
brl.go - BRL currency-string parsing and formatting

Event configuration stores money as operator-entered strings in the
Brazilian format: "R$ 1.234,56" (dot thousands separator, comma decimal
separator, optional "R$" prefix). Parsing tolerates missing prefix and
surrounding whitespace, rejects everything else.
*/
package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseBRL parses a BRL-formatted string into a decimal amount.
//
//	ParseBRL("R$ 120,00")   -> 120.00
//	ParseBRL("R$ 1.234,56") -> 1234.56
//	ParseBRL("35")          -> 35
func ParseBRL(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "R$")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty currency value %q", s)
	}

	// "1.234,56" -> "1234.56"
	raw = strings.ReplaceAll(raw, ".", "")
	raw = strings.ReplaceAll(raw, ",", ".")

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad currency value %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative currency value %q", s)
	}
	return d, nil
}

// FormatBRL renders a decimal amount in the Brazilian format, with the
// "R$" prefix and comma decimal separator.
func FormatBRL(d decimal.Decimal) string {
	fixed := d.StringFixed(2) // "1234.56"
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	// Insert dot thousands separators right to left.
	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := "R$ " + strings.Join(groups, ".") + "," + fracPart
	if neg {
		out = "-" + out
	}
	return out
}
