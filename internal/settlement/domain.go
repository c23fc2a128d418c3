package settlement

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMode enumerates supported payment channels.
type PaymentMode string

const (
	ModeCash   PaymentMode = "CASH"
	ModeBank   PaymentMode = "BANK"
	ModeCheque PaymentMode = "CHEQUE"
	ModeMobile PaymentMode = "MOBILE"
)

// ReferenceRequired reports whether a bank/cheque reference must accompany
// a payment in this mode.
func (m PaymentMode) ReferenceRequired() bool {
	return m == ModeBank || m == ModeCheque
}

// Valid reports whether the mode is one of the known channels.
func (m PaymentMode) Valid() bool {
	switch m {
	case ModeCash, ModeBank, ModeCheque, ModeMobile:
		return true
	}
	return false
}

// LineItem is one product entry on an invoice. Quantities and prices are
// immutable once the invoice is created; returns are recorded separately.
type LineItem struct {
	ID        int64
	ProductID int64
	Qty       decimal.Decimal
	UnitPrice decimal.Decimal
	MarkupPct decimal.Decimal
}

// AdjustedPrice is the unit price with markup applied, at 2 fraction digits.
func (l LineItem) AdjustedPrice() decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(l.MarkupPct.Div(decimal.NewFromInt(100)))
	return l.UnitPrice.Mul(factor).Round(2)
}

// Total is the line amount: adjusted price times quantity.
func (l LineItem) Total() decimal.Decimal {
	return l.AdjustedPrice().Mul(l.Qty).Round(2)
}

// Payment is an append-only settlement record against an invoice.
type Payment struct {
	ID        int64
	Number    string
	Mode      PaymentMode
	Amount    decimal.Decimal
	BankRef   string
	PaidAt    time.Time
	CreatedAt time.Time
}

// Return is an append-only record of goods handed back against one sale
// invoice line.
type Return struct {
	ID         int64
	LineItemID int64
	Qty        decimal.Decimal
	ReturnedAt time.Time
	Remarks    string
}

// Invoice is the calculator's view of a purchase or sale invoice: a header
// discount plus append-only collections. The two directions are structurally
// identical.
type Invoice struct {
	Lines    []LineItem
	Payments []Payment
	Returns  []Return
	Discount decimal.Decimal
}

// Totals groups the derived financial fields of an invoice.
type Totals struct {
	Total   decimal.Decimal
	Payable decimal.Decimal
	Paid    decimal.Decimal
	Due     decimal.Decimal
}
