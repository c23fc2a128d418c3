package purchases

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/settlement"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// IdempotencyGuard deduplicates retried append requests.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditRecorder captures who appended what.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo        Repository
	idempotency IdempotencyGuard
	audit       AuditRecorder
	metrics     *observability.Metrics
}

func NewService(repo Repository, idempotency IdempotencyGuard, audit AuditRecorder, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, idempotency: idempotency, audit: audit, metrics: metrics}
}

// Create writes a new invoice with its lines. The invoice is immutable
// afterwards; only payments may be appended.
func (s *Service) Create(ctx context.Context, input CreateInvoiceInput) (InvoiceDetail, error) {
	if err := validateInvoiceInput(input); err != nil {
		return InvoiceDetail{}, err
	}
	if input.InvoiceDate.IsZero() {
		input.InvoiceDate = time.Now()
	}

	id, err := s.repo.CreateInvoice(ctx, input)
	if err != nil {
		return InvoiceDetail{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.CreatedBy,
			Action:   "create",
			Entity:   "purchase_invoice",
			EntityID: strconv.FormatInt(id, 10),
		})
	}

	return s.Get(ctx, id)
}

// Get assembles the full read model. Totals are derived on every read and
// never stored.
func (s *Service) Get(ctx context.Context, id int64) (InvoiceDetail, error) {
	inv, supplierName, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return InvoiceDetail{}, err
	}
	lines, err := s.repo.GetLines(ctx, id)
	if err != nil {
		return InvoiceDetail{}, err
	}
	payments, err := s.repo.GetPayments(ctx, id)
	if err != nil {
		return InvoiceDetail{}, err
	}

	totals := settlement.ComputeTotals(settlement.Invoice{
		Lines:    settlementLines(lines),
		Payments: settlementPayments(payments),
		Discount: inv.Discount,
	})

	return InvoiceDetail{
		Invoice:      inv,
		SupplierName: supplierName,
		Lines:        lines,
		Payments:     payments,
		Totals:       totals,
	}, nil
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]InvoiceSummary, int, error) {
	filters.Normalize()

	invoices, supplierNames, total, err := s.repo.ListInvoices(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]InvoiceSummary, 0, len(invoices))
	for _, inv := range invoices {
		lines, err := s.repo.GetLines(ctx, inv.ID)
		if err != nil {
			return nil, 0, err
		}
		payments, err := s.repo.GetPayments(ctx, inv.ID)
		if err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, InvoiceSummary{
			Invoice:      inv,
			SupplierName: supplierNames[inv.ID],
			Totals: settlement.ComputeTotals(settlement.Invoice{
				Lines:    settlementLines(lines),
				Payments: settlementPayments(payments),
				Discount: inv.Discount,
			}),
		})
	}
	return summaries, total, nil
}

// AddPayment appends one payment. The idempotency key, when supplied,
// guards against double-posting on client retries.
func (s *Service) AddPayment(ctx context.Context, actorID int64, input AddPaymentInput) (Payment, error) {
	if !input.Mode.Valid() {
		return Payment{}, ErrInvalidPaymentMode
	}
	if input.Mode.ReferenceRequired() && strings.TrimSpace(input.BankRef) == "" {
		return Payment{}, ErrReferenceRequired
	}
	if !input.Amount.IsPositive() {
		return Payment{}, ErrNonPositiveAmount
	}

	if _, _, err := s.repo.GetInvoice(ctx, input.InvoiceID); err != nil {
		return Payment{}, err
	}

	if input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "purchases"); err != nil {
			return Payment{}, err
		}
	}

	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	payment, err := s.repo.AddPayment(ctx, input.InvoiceID, Payment{
		Number:  paymentNumber(),
		Mode:    input.Mode,
		Amount:  input.Amount,
		BankRef: strings.TrimSpace(input.BankRef),
		PaidAt:  paidAt,
	})
	if err != nil {
		if input.IdempotencyKey != "" {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return Payment{}, err
	}

	s.metrics.RecordPayment("purchase")
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "add_payment",
			Entity:   "purchase_invoice",
			EntityID: strconv.FormatInt(input.InvoiceID, 10),
			Meta:     map[string]any{"payment_number": payment.Number, "amount": payment.Amount.String()},
		})
	}
	return payment, nil
}

func validateInvoiceInput(input CreateInvoiceInput) error {
	if input.SupplierID <= 0 {
		return shared.ValidationError("supplier is required")
	}
	if len(input.Lines) == 0 {
		return ErrNoLines
	}
	if input.Discount.IsNegative() {
		return shared.ValidationError("discount cannot be negative")
	}
	for _, line := range input.Lines {
		if line.ProductID <= 0 {
			return shared.ValidationError("line product is required")
		}
		if !line.Qty.IsPositive() {
			return shared.ValidationError("line quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return shared.ValidationError("line unit price cannot be negative")
		}
		if line.MarkupPct.IsNegative() {
			return shared.ValidationError("line markup cannot be negative")
		}
	}
	return nil
}

func paymentNumber() string {
	return "PP-" + strings.ToUpper(uuid.NewString()[:8])
}
