package sales

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
	// ErrLineNotFound means the return targets a line the invoice does not have.
	ErrLineNotFound = shared.ValidationError("invoice line not found")
)

// Invoice is a sale invoice header, immutable after creation. Payments and
// returns are appended, never edited.
type Invoice struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	CustomerID  int64           `json:"customer_id"`
	InvoiceDate time.Time       `json:"invoice_date"`
	Discount    decimal.Decimal `json:"discount"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Line is one product entry on a sale invoice.
type Line struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	MarkupPct   decimal.Decimal `json:"markup_pct"`
}

// Payment is a settled amount against a sale invoice.
type Payment struct {
	ID        int64                  `json:"id"`
	Number    string                 `json:"number"`
	Mode      settlement.PaymentMode `json:"mode"`
	Amount    decimal.Decimal        `json:"amount"`
	BankRef   string                 `json:"bank_ref,omitempty"`
	PaidAt    time.Time              `json:"paid_at"`
	CreatedAt time.Time              `json:"created_at"`
}

// Return records goods handed back against one invoice line. Amount is the
// value at the line's adjusted price, fixed at record time.
type Return struct {
	ID         int64           `json:"id"`
	LineItemID int64           `json:"line_item_id"`
	Qty        decimal.Decimal `json:"qty"`
	Amount     decimal.Decimal `json:"amount"`
	Remarks    string          `json:"remarks,omitempty"`
	ReturnedAt time.Time       `json:"returned_at"`
	CreatedAt  time.Time       `json:"created_at"`
}

// InvoiceDetail is the full read model with derived financials.
type InvoiceDetail struct {
	Invoice
	CustomerName  string            `json:"customer_name"`
	Lines         []Line            `json:"lines"`
	Payments      []Payment         `json:"payments"`
	Returns       []Return          `json:"returns"`
	Totals        settlement.Totals `json:"totals"`
	ReturnedValue decimal.Decimal   `json:"returned_value"`
}

// InvoiceSummary is one row of the invoice listing.
type InvoiceSummary struct {
	Invoice
	CustomerName string            `json:"customer_name"`
	Totals       settlement.Totals `json:"totals"`
}

// CreateInvoiceInput carries a new invoice through the service.
type CreateInvoiceInput struct {
	CustomerID  int64
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

// AddReturnInput appends one return against an invoice line.
type AddReturnInput struct {
	InvoiceID      int64
	LineItemID     int64
	Qty            decimal.Decimal
	Remarks        string
	ReturnedAt     time.Time
	IdempotencyKey string
}

// ListFilters narrows the invoice listing.
type ListFilters struct {
	CustomerID int64
	From       time.Time
	To         time.Time
	Page       int
	Limit      int
}

func (f *ListFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
}

func (f ListFilters) Offset() int {
	return (f.Page - 1) * f.Limit
}

// DueEntry is one outstanding invoice in the dues report.
type DueEntry struct {
	InvoiceID    int64           `json:"invoice_id"`
	Number       string          `json:"number"`
	CustomerName string          `json:"customer_name"`
	InvoiceDate  time.Time       `json:"invoice_date"`
	Due          decimal.Decimal `json:"due"`
	DueDisplay   string          `json:"due_display"`
}

// DuesReport lists sale invoices with a positive outstanding balance.
type DuesReport struct {
	Entries         []DueEntry      `json:"entries"`
	TotalDue        decimal.Decimal `json:"total_due"`
	TotalDueDisplay string          `json:"total_due_display"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

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

func settlementReturns(returns []Return) []settlement.Return {
	out := make([]settlement.Return, 0, len(returns))
	for _, r := range returns {
		out = append(out, settlement.Return{
			ID:         r.ID,
			LineItemID: r.LineItemID,
			Qty:        r.Qty,
			ReturnedAt: r.ReturnedAt,
			Remarks:    r.Remarks,
		})
	}
	return out
}
