package sales

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/settlement"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	invoices      map[int64]Invoice
	lines         map[int64][]Line
	payments      map[int64][]Payment
	returns       map[int64][]Return
	nextInvoiceID int64
	nextLineID    int64
	nextPayID     int64
	nextReturnID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		invoices: make(map[int64]Invoice),
		lines:    make(map[int64][]Line),
		payments: make(map[int64][]Payment),
		returns:  make(map[int64][]Return),
	}
}

func (r *memoryRepo) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (int64, error) {
	r.nextInvoiceID++
	id := r.nextInvoiceID
	r.invoices[id] = Invoice{
		ID:          id,
		Number:      "SINV-TEST-" + strconv.FormatInt(id, 10),
		CustomerID:  input.CustomerID,
		InvoiceDate: input.InvoiceDate,
		Discount:    input.Discount,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   time.Now(),
	}
	for _, line := range input.Lines {
		r.nextLineID++
		r.lines[id] = append(r.lines[id], Line{
			ID:        r.nextLineID,
			ProductID: line.ProductID,
			Qty:       line.Qty,
			UnitPrice: line.UnitPrice,
			MarkupPct: line.MarkupPct,
		})
	}
	return id, nil
}

func (r *memoryRepo) GetInvoice(ctx context.Context, id int64) (Invoice, string, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return Invoice{}, "", shared.ErrNotFound
	}
	return inv, "Test Customer", nil
}

func (r *memoryRepo) GetLines(ctx context.Context, invoiceID int64) ([]Line, error) {
	return append([]Line(nil), r.lines[invoiceID]...), nil
}

func (r *memoryRepo) GetPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	return append([]Payment(nil), r.payments[invoiceID]...), nil
}

func (r *memoryRepo) GetReturns(ctx context.Context, invoiceID int64) ([]Return, error) {
	return append([]Return(nil), r.returns[invoiceID]...), nil
}

func (r *memoryRepo) ListInvoices(ctx context.Context, filters ListFilters) ([]Invoice, map[int64]string, int, error) {
	var out []Invoice
	names := make(map[int64]string)
	for _, inv := range r.invoices {
		if filters.CustomerID != 0 && inv.CustomerID != filters.CustomerID {
			continue
		}
		out = append(out, inv)
		names[inv.ID] = "Test Customer"
	}
	return out, names, len(out), nil
}

func (r *memoryRepo) ListOpenInvoices(ctx context.Context, before time.Time) ([]Invoice, map[int64]string, error) {
	var out []Invoice
	names := make(map[int64]string)
	for _, inv := range r.invoices {
		if !inv.InvoiceDate.Before(before) {
			continue
		}
		out = append(out, inv)
		names[inv.ID] = "Test Customer"
	}
	return out, names, nil
}

func (r *memoryRepo) AddPayment(ctx context.Context, invoiceID int64, payment Payment) (Payment, error) {
	r.nextPayID++
	payment.ID = r.nextPayID
	payment.CreatedAt = time.Now()
	r.payments[invoiceID] = append(r.payments[invoiceID], payment)
	return payment, nil
}

func (r *memoryRepo) AddReturn(ctx context.Context, invoiceID int64, ret Return) (Return, error) {
	r.nextReturnID++
	ret.ID = r.nextReturnID
	ret.CreatedAt = time.Now()
	r.returns[invoiceID] = append(r.returns[invoiceID], ret)
	return ret, nil
}

type memoryIdempotency struct {
	seen map[string]bool
}

func (g *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if g.seen == nil {
		g.seen = make(map[string]bool)
	}
	if g.seen[key] {
		return shared.ErrIdempotencyConflict
	}
	g.seen[key] = true
	return nil
}

func (g *memoryIdempotency) Delete(ctx context.Context, key string) error {
	delete(g.seen, key)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, &memoryIdempotency{}, nil, nil, client, time.Minute), repo
}

func validInput() CreateInvoiceInput {
	return CreateInvoiceInput{
		CustomerID:  3,
		InvoiceDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Discount:    dec("50"),
		CreatedBy:   1,
		Lines: []CreateLineInput{
			{ProductID: 1, Qty: dec("10"), UnitPrice: dec("100")},
		},
	}
}

func TestCreateAndGetTotals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	detail, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	require.True(t, detail.Totals.Total.Equal(dec("1000")))
	require.True(t, detail.Totals.Payable.Equal(dec("950")))

	_, err = svc.AddPayment(ctx, 1, AddPaymentInput{InvoiceID: detail.ID, Mode: "CASH", Amount: dec("600")})
	require.NoError(t, err)

	detail, err = svc.Get(ctx, detail.ID)
	require.NoError(t, err)
	require.True(t, detail.Totals.Due.Equal(dec("350")))
}

func TestReturnsDoNotReduceDue(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	detail, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.AddReturn(ctx, 1, AddReturnInput{
		InvoiceID:  detail.ID,
		LineItemID: detail.Lines[0].ID,
		Qty:        dec("4"),
	})
	require.NoError(t, err)

	detail, err = svc.Get(ctx, detail.ID)
	require.NoError(t, err)
	require.True(t, detail.Totals.Due.Equal(dec("950")), "due unchanged by returns, got %s", detail.Totals.Due)
	require.True(t, detail.ReturnedValue.Equal(dec("400")))
}

func TestReturnAmountUsesAdjustedPrice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	input := validInput()
	input.Lines[0].MarkupPct = dec("10")

	detail, err := svc.Create(ctx, input)
	require.NoError(t, err)

	ret, err := svc.AddReturn(ctx, 1, AddReturnInput{
		InvoiceID:  detail.ID,
		LineItemID: detail.Lines[0].ID,
		Qty:        dec("2"),
	})
	require.NoError(t, err)
	require.True(t, ret.Amount.Equal(dec("220")), "got %s", ret.Amount)
}

func TestReturnRejectedWhenExceedingSold(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	detail, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	lineID := detail.Lines[0].ID

	_, err = svc.AddReturn(ctx, 1, AddReturnInput{InvoiceID: detail.ID, LineItemID: lineID, Qty: dec("7")})
	require.NoError(t, err)

	_, err = svc.AddReturn(ctx, 1, AddReturnInput{InvoiceID: detail.ID, LineItemID: lineID, Qty: dec("4")})
	require.ErrorIs(t, err, settlement.ErrExceedsSoldQuantity)

	var exceedsErr *settlement.ExceedsSoldQuantityError
	require.ErrorAs(t, err, &exceedsErr)
	require.True(t, exceedsErr.Remaining().Equal(dec("3")))

	_, err = svc.AddReturn(ctx, 1, AddReturnInput{InvoiceID: detail.ID, LineItemID: lineID, Qty: dec("3")})
	require.NoError(t, err)

	detail, err = svc.Get(ctx, detail.ID)
	require.NoError(t, err)
	require.Len(t, detail.Returns, 2)
}

func TestReturnUnknownLine(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	detail, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.AddReturn(ctx, 1, AddReturnInput{InvoiceID: detail.ID, LineItemID: 999, Qty: dec("1")})
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestPreviewReturn(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	input := validInput()
	input.Lines[0].MarkupPct = dec("10")

	detail, err := svc.Create(ctx, input)
	require.NoError(t, err)

	amount, err := svc.PreviewReturn(ctx, detail.ID, detail.Lines[0].ID, dec("1"))
	require.NoError(t, err)
	require.True(t, amount.Equal(dec("110")))
}

func TestReturnIdempotency(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	detail, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	input := AddReturnInput{InvoiceID: detail.ID, LineItemID: detail.Lines[0].ID, Qty: dec("1"), IdempotencyKey: "ret-1"}
	_, err = svc.AddReturn(ctx, 1, input)
	require.NoError(t, err)

	_, err = svc.AddReturn(ctx, 1, input)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
}

func TestDuesReportSkipsSettledInvoices(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	open, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	settled, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.AddPayment(ctx, 1, AddPaymentInput{InvoiceID: settled.ID, Mode: "CASH", Amount: dec("950")})
	require.NoError(t, err)

	report, err := svc.RefreshDuesReport(ctx)
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	require.Equal(t, open.ID, report.Entries[0].InvoiceID)
	require.True(t, report.TotalDue.Equal(dec("950")))
	require.Equal(t, "950.00", report.TotalDueDisplay)
}

func TestDuesReportServedFromCache(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	first, err := svc.DuesReport(ctx)
	require.NoError(t, err)
	require.Len(t, first.Entries, 1)

	// New invoice appears only after the cache expires or is refreshed.
	_, err = svc.Create(ctx, validInput())
	require.NoError(t, err)
	require.Len(t, repo.invoices, 2)

	cached, err := svc.DuesReport(ctx)
	require.NoError(t, err)
	require.Len(t, cached.Entries, 1)

	refreshed, err := svc.RefreshDuesReport(ctx)
	require.NoError(t, err)
	require.Len(t, refreshed.Entries, 2)
}
