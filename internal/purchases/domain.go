package purchases

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/settlement"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

var (
	// ErrNoLines rejects invoice creation without any line items.
	ErrNoLines = shared.ValidationError("at least one line item is required")
	// ErrInvalidPaymentMode rejects unknown payment channels.
	ErrInvalidPaymentMode = shared.ValidationError("invalid payment mode")
	// ErrReferenceRequired rejects bank/cheque payments without a reference.
	ErrReferenceRequired = shared.ValidationError("bank or cheque reference is required")
	// ErrNonPositiveAmount rejects zero or negative payment amounts.
	ErrNonPositiveAmount = shared.ValidationError("payment amount must be positive")
)

// Invoice is a purchase invoice header. The header and its lines are
// immutable after creation; only payments may be appended.
type Invoice struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	SupplierID  int64           `json:"supplier_id"`
	SupplierRef string          `json:"supplier_ref,omitempty"`
	InvoiceDate time.Time       `json:"invoice_date"`
	Discount    decimal.Decimal `json:"discount"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Line is one product entry on a purchase invoice, enriched with the
// product name for display.
type Line struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	MarkupPct   decimal.Decimal `json:"markup_pct"`
}

// Payment is a settled amount against a purchase invoice.
type Payment struct {
	ID        int64                  `json:"id"`
	Number    string                 `json:"number"`
	Mode      settlement.PaymentMode `json:"mode"`
	Amount    decimal.Decimal        `json:"amount"`
	BankRef   string                 `json:"bank_ref,omitempty"`
	PaidAt    time.Time              `json:"paid_at"`
	CreatedAt time.Time              `json:"created_at"`
}

// InvoiceDetail is the full read model: header, lines, payments, and the
// financial summary derived on every read.
type InvoiceDetail struct {
	Invoice
	SupplierName string            `json:"supplier_name"`
	Lines        []Line            `json:"lines"`
	Payments     []Payment         `json:"payments"`
	Totals       settlement.Totals `json:"totals"`
}

// InvoiceSummary is one row of the invoice listing.
type InvoiceSummary struct {
	Invoice
	SupplierName string            `json:"supplier_name"`
	Totals       settlement.Totals `json:"totals"`
}

// CreateInvoiceInput carries a new invoice through the service.
type CreateInvoiceInput struct {
	SupplierID  int64
	SupplierRef string
	InvoiceDate time.Time
	Discount    decimal.Decimal
	CreatedBy   int64
	Lines       []CreateLineInput
}

// CreateLineInput is one line of CreateInvoiceInput.
type CreateLineInput struct {
	ProductID int64
	Qty       decimal.Decimal
	UnitPrice decimal.Decimal
	MarkupPct decimal.Decimal
}

// AddPaymentInput appends one payment to an invoice.
type AddPaymentInput struct {
	InvoiceID      int64
	Mode           settlement.PaymentMode
	Amount         decimal.Decimal
	BankRef        string
	PaidAt         time.Time
	IdempotencyKey string
}

// ListFilters narrows the invoice listing.
type ListFilters struct {
	SupplierID int64
	From       time.Time
	To         time.Time
	Page       int
	Limit      int
}

// Normalize applies listing defaults.
func (f *ListFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
}

// Offset is the row offset for the current page.
func (f ListFilters) Offset() int {
	return (f.Page - 1) * f.Limit
}

// settlementLines converts lines to the calculator's representation.
func settlementLines(lines []Line) []settlement.LineItem {
	out := make([]settlement.LineItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, settlement.LineItem{
			ID:        l.ID,
			ProductID: l.ProductID,
			Qty:       l.Qty,
			UnitPrice: l.UnitPrice,
			MarkupPct: l.MarkupPct,
		})
	}
	return out
}

// settlementPayments converts payments to the calculator's representation.
func settlementPayments(payments []Payment) []settlement.Payment {
	out := make([]settlement.Payment, 0, len(payments))
	for _, p := range payments {
		out = append(out, settlement.Payment{
			ID:     p.ID,
			Number: p.Number,
			Mode:   p.Mode,
			Amount: p.Amount,
			PaidAt: p.PaidAt,
		})
	}
	return out
}
