package processors

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeProductCode converts a raw identifier cell into a canonical
// product key. Numeric identifiers that are integral are formatted without a
// trailing fractional zero ("8000.0" -> "8000"); non-integral numerics keep
// their trimmed string form; textual identifiers are trimmed. The second
// return is false for empty or blank identifiers, which classify the row as
// invalid without any catalog lookup.
func NormalizeProductCode(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	if d, err := decimal.NewFromString(trimmed); err == nil {
		if d.IsInteger() {
			return d.BigInt().String(), true
		}
		return trimmed, true
	}
	return trimmed, true
}

// ParsePrice attempts an exact-decimal conversion of an optional price cell.
// A false return means "ignore the input, retain the stored value".
func ParsePrice(raw string) (decimal.Decimal, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseQuantity attempts an integer conversion of an optional quantity cell.
// Decimal-formatted quantities are truncated toward zero ("5.5" -> 5); a
// false return means the stored quantity is retained.
func ParseQuantity(raw string) (int, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return n, true
	}
	if d, err := decimal.NewFromString(trimmed); err == nil {
		return int(d.IntPart()), true
	}
	return 0, false
}
