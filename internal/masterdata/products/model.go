package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product entity. UnitPrice and MarkupPct prefill
// invoice lines; the invoice keeps its own copy so later price changes do
// not rewrite history.
type Product struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	MarkupPct decimal.Decimal `json:"markup_pct"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
