package importer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount reads a signed amount written with either a decimal comma or a
// decimal point. Whichever separator comes last is the decimal one; the other
// is taken as a thousands separator.
//
// "1.234,56" -> 1234.56, "-588,74" -> -588.74, "1,234.56" -> 1234.56.
func parseAmount(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer(" ", "", "\u00a0", "", "'", "").Replace(strings.TrimSpace(s))

	comma := strings.LastIndex(clean, ",")
	dot := strings.LastIndex(clean, ".")

	switch {
	case comma > dot:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	case comma >= 0:
		clean = strings.ReplaceAll(clean, ",", "")
	}

	return decimal.NewFromString(clean)
}
