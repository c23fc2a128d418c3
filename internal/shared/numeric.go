package shared

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts raw API input into a decimal, treating empty,
// missing, or malformed values as zero. This leniency is confined to the
// ingestion boundary; everything past it works with typed decimals and
// callers needing strict validation must check before parsing.
func ParseAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseQty is ParseAmount under a name that reads better at call sites
// handling quantities.
func ParseQty(raw string) decimal.Decimal {
	return ParseAmount(raw)
}
