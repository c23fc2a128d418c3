package sales

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

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

const duesReportCacheKey = "report:sales_dues"

type Service struct {
	repo        Repository
	idempotency IdempotencyGuard
	audit       AuditRecorder
	metrics     *observability.Metrics
	cache       *redis.Client
	cacheTTL    time.Duration
	duesGroup   singleflight.Group
}

func NewService(repo Repository, idempotency IdempotencyGuard, audit AuditRecorder, metrics *observability.Metrics, cache *redis.Client, cacheTTL time.Duration) *Service {
	return &Service{
		repo:        repo,
		idempotency: idempotency,
		audit:       audit,
		metrics:     metrics,
		cache:       cache,
		cacheTTL:    cacheTTL,
	}
}

// Create writes a new invoice with its lines. The invoice is immutable
// afterwards; payments and returns are appended separately.
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
			Entity:   "sale_invoice",
			EntityID: strconv.FormatInt(id, 10),
		})
	}

	return s.Get(ctx, id)
}

// Get assembles the full read model. Totals and returned value are derived
// on every read and never stored.
func (s *Service) Get(ctx context.Context, id int64) (InvoiceDetail, error) {
	inv, customerName, err := s.repo.GetInvoice(ctx, id)
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
	returns, err := s.repo.GetReturns(ctx, id)
	if err != nil {
		return InvoiceDetail{}, err
	}

	slines := settlementLines(lines)
	sreturns := settlementReturns(returns)

	return InvoiceDetail{
		Invoice:      inv,
		CustomerName: customerName,
		Lines:        lines,
		Payments:     payments,
		Returns:      returns,
		Totals: settlement.ComputeTotals(settlement.Invoice{
			Lines:    slines,
			Payments: settlementPayments(payments),
			Returns:  sreturns,
			Discount: inv.Discount,
		}),
		ReturnedValue: settlement.ReturnedValue(slines, sreturns),
	}, nil
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]InvoiceSummary, int, error) {
	filters.Normalize()

	invoices, customerNames, total, err := s.repo.ListInvoices(ctx, filters)
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
			CustomerName: customerNames[inv.ID],
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
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "sales"); err != nil {
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

	s.metrics.RecordPayment("sale")
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "add_payment",
			Entity:   "sale_invoice",
			EntityID: strconv.FormatInt(input.InvoiceID, 10),
			Meta:     map[string]any{"payment_number": payment.Number, "amount": payment.Amount.String()},
		})
	}
	return payment, nil
}

// AddReturn appends one return after checking it against the line's sold
// quantity and everything already returned for that line. The quantity is
// persisted as requested or not at all.
func (s *Service) AddReturn(ctx context.Context, actorID int64, input AddReturnInput) (Return, error) {
	if _, _, err := s.repo.GetInvoice(ctx, input.InvoiceID); err != nil {
		return Return{}, err
	}
	lines, err := s.repo.GetLines(ctx, input.InvoiceID)
	if err != nil {
		return Return{}, err
	}

	var line *Line
	for i := range lines {
		if lines[i].ID == input.LineItemID {
			line = &lines[i]
			break
		}
	}
	if line == nil {
		return Return{}, ErrLineNotFound
	}

	returns, err := s.repo.GetReturns(ctx, input.InvoiceID)
	if err != nil {
		return Return{}, err
	}

	item := settlement.LineItem{
		ID:        line.ID,
		ProductID: line.ProductID,
		Qty:       line.Qty,
		UnitPrice: line.UnitPrice,
		MarkupPct: line.MarkupPct,
	}
	if err := settlement.ValidateReturn(item, settlementReturns(returns), input.Qty); err != nil {
		s.metrics.RecordReturnRejected()
		return Return{}, err
	}

	if input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "sales"); err != nil {
			return Return{}, err
		}
	}

	returnedAt := input.ReturnedAt
	if returnedAt.IsZero() {
		returnedAt = time.Now()
	}

	ret, err := s.repo.AddReturn(ctx, input.InvoiceID, Return{
		LineItemID: input.LineItemID,
		Qty:        input.Qty,
		Amount:     settlement.ComputeReturnAmount(item, input.Qty),
		Remarks:    strings.TrimSpace(input.Remarks),
		ReturnedAt: returnedAt,
	})
	if err != nil {
		if input.IdempotencyKey != "" {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return Return{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "add_return",
			Entity:   "sale_invoice",
			EntityID: strconv.FormatInt(input.InvoiceID, 10),
			Meta:     map[string]any{"line_item_id": input.LineItemID, "qty": input.Qty.String()},
		})
	}
	return ret, nil
}

// PreviewReturn values a proposed return without recording anything.
func (s *Service) PreviewReturn(ctx context.Context, invoiceID, lineItemID int64, qty decimal.Decimal) (decimal.Decimal, error) {
	lines, err := s.repo.GetLines(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, err
	}
	for _, line := range lines {
		if line.ID == lineItemID {
			return settlement.ComputeReturnAmount(settlement.LineItem{
				ID:        line.ID,
				Qty:       line.Qty,
				UnitPrice: line.UnitPrice,
				MarkupPct: line.MarkupPct,
			}, qty), nil
		}
	}
	return decimal.Zero, ErrLineNotFound
}

// DuesReport serves the cached report when fresh enough, collapsing
// concurrent rebuilds into one.
func (s *Service) DuesReport(ctx context.Context) (DuesReport, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, duesReportCacheKey).Bytes()
		if err == nil {
			var report DuesReport
			if err := json.Unmarshal(raw, &report); err == nil {
				return report, nil
			}
		}
	}

	result, err, _ := s.duesGroup.Do(duesReportCacheKey, func() (interface{}, error) {
		return s.RefreshDuesReport(ctx)
	})
	if err != nil {
		return DuesReport{}, err
	}
	return result.(DuesReport), nil
}

// RefreshDuesReport rebuilds the report from the invoice book and stores it
// in the cache.
func (s *Service) RefreshDuesReport(ctx context.Context) (DuesReport, error) {
	invoices, customerNames, err := s.repo.ListOpenInvoices(ctx, time.Now())
	if err != nil {
		return DuesReport{}, err
	}

	report := DuesReport{GeneratedAt: time.Now(), TotalDue: decimal.Zero}
	for _, inv := range invoices {
		lines, err := s.repo.GetLines(ctx, inv.ID)
		if err != nil {
			return DuesReport{}, err
		}
		payments, err := s.repo.GetPayments(ctx, inv.ID)
		if err != nil {
			return DuesReport{}, err
		}
		totals := settlement.ComputeTotals(settlement.Invoice{
			Lines:    settlementLines(lines),
			Payments: settlementPayments(payments),
			Discount: inv.Discount,
		})
		if !totals.Due.IsPositive() {
			continue
		}
		report.Entries = append(report.Entries, DueEntry{
			InvoiceID:    inv.ID,
			Number:       inv.Number,
			CustomerName: customerNames[inv.ID],
			InvoiceDate:  inv.InvoiceDate,
			Due:          totals.Due,
			DueDisplay:   shared.FormatMoney(totals.Due),
		})
		report.TotalDue = report.TotalDue.Add(totals.Due)
	}
	report.TotalDueDisplay = shared.FormatMoney(report.TotalDue)

	if s.cache != nil && s.cacheTTL > 0 {
		if raw, err := json.Marshal(report); err == nil {
			_ = s.cache.Set(ctx, duesReportCacheKey, raw, s.cacheTTL).Err()
		}
	}
	return report, nil
}

func validateInvoiceInput(input CreateInvoiceInput) error {
	if input.CustomerID <= 0 {
		return shared.ValidationError("customer is required")
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
	return "SP-" + strings.ToUpper(uuid.NewString()[:8])
}
