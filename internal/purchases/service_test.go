package purchases

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	invoices      map[int64]Invoice
	lines         map[int64][]Line
	payments      map[int64][]Payment
	nextInvoiceID int64
	nextLineID    int64
	nextPayID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		invoices: make(map[int64]Invoice),
		lines:    make(map[int64][]Line),
		payments: make(map[int64][]Payment),
	}
}

func (r *memoryRepo) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (int64, error) {
	r.nextInvoiceID++
	id := r.nextInvoiceID
	r.invoices[id] = Invoice{
		ID:          id,
		Number:      "PINV-TEST-" + strconv.FormatInt(id, 10),
		SupplierID:  input.SupplierID,
		SupplierRef: input.SupplierRef,
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
	return inv, "Test Supplier", nil
}

func (r *memoryRepo) GetLines(ctx context.Context, invoiceID int64) ([]Line, error) {
	return append([]Line(nil), r.lines[invoiceID]...), nil
}

func (r *memoryRepo) GetPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	return append([]Payment(nil), r.payments[invoiceID]...), nil
}

func (r *memoryRepo) ListInvoices(ctx context.Context, filters ListFilters) ([]Invoice, map[int64]string, int, error) {
	var out []Invoice
	names := make(map[int64]string)
	for _, inv := range r.invoices {
		if filters.SupplierID != 0 && inv.SupplierID != filters.SupplierID {
			continue
		}
		out = append(out, inv)
		names[inv.ID] = "Test Supplier"
	}
	return out, names, len(out), nil
}

func (r *memoryRepo) AddPayment(ctx context.Context, invoiceID int64, payment Payment) (Payment, error) {
	r.nextPayID++
	payment.ID = r.nextPayID
	payment.CreatedAt = time.Now()
	r.payments[invoiceID] = append(r.payments[invoiceID], payment)
	return payment, nil
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

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	return NewService(repo, &memoryIdempotency{}, nil, nil), repo
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validInput() CreateInvoiceInput {
	return CreateInvoiceInput{
		SupplierID:  7,
		SupplierRef: "SUP-REF-1",
		InvoiceDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Discount:    dec("50"),
		CreatedBy:   1,
		Lines: []CreateLineInput{
			{ProductID: 1, Qty: dec("10"), UnitPrice: dec("100")},
		},
	}
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	svc, _ := newTestService()

	detail, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.NotEmpty(t, detail.Number)
	require.Len(t, detail.Lines, 1)
	require.True(t, detail.Totals.Total.Equal(dec("1000")))
	require.True(t, detail.Totals.Payable.Equal(dec("950")))
	require.True(t, detail.Totals.Due.Equal(dec("950")))
}

func TestCreateInvoiceAppliesMarkup(t *testing.T) {
	svc, _ := newTestService()

	input := validInput()
	input.Lines[0].MarkupPct = dec("10")
	input.Discount = decimal.Zero

	detail, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.True(t, detail.Totals.Total.Equal(dec("1100")), "got %s", detail.Totals.Total)
}

func TestCreateInvoiceValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	input := validInput()
	input.Lines = nil
	_, err := svc.Create(ctx, input)
	require.ErrorIs(t, err, ErrNoLines)

	input = validInput()
	input.Discount = dec("-1")
	_, err = svc.Create(ctx, input)
	var vErr shared.ValidationError
	require.ErrorAs(t, err, &vErr)

	input = validInput()
	input.Lines[0].Qty = decimal.Zero
	_, err = svc.Create(ctx, input)
	require.ErrorAs(t, err, &vErr)
}

func TestPayableFlooredAtZero(t *testing.T) {
	svc, _ := newTestService()

	input := validInput()
	input.Discount = dec("2000")

	detail, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.True(t, detail.Totals.Payable.IsZero())
	require.True(t, detail.Totals.Due.IsZero())
}

func TestAddPaymentReducesDue(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	detail, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	payment, err := svc.AddPayment(ctx, 1, AddPaymentInput{
		InvoiceID: detail.ID,
		Mode:      "CASH",
		Amount:    dec("600"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, payment.Number)

	detail, err = svc.Get(ctx, detail.ID)
	require.NoError(t, err)
	require.True(t, detail.Totals.Paid.Equal(dec("600")))
	require.True(t, detail.Totals.Due.Equal(dec("350")))
}

func TestOverpaymentLeavesNegativeDue(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	detail, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.AddPayment(ctx, 1, AddPaymentInput{InvoiceID: detail.ID, Mode: "CASH", Amount: dec("1000")})
	require.NoError(t, err)

	detail, err = svc.Get(ctx, detail.ID)
	require.NoError(t, err)
	require.True(t, detail.Totals.Due.Equal(dec("-50")), "got %s", detail.Totals.Due)
}

func TestAddPaymentValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	detail, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.AddPayment(ctx, 1, AddPaymentInput{InvoiceID: detail.ID, Mode: "WIRE", Amount: dec("10")})
	require.ErrorIs(t, err, ErrInvalidPaymentMode)

	_, err = svc.AddPayment(ctx, 1, AddPaymentInput{InvoiceID: detail.ID, Mode: "BANK", Amount: dec("10")})
	require.ErrorIs(t, err, ErrReferenceRequired)

	_, err = svc.AddPayment(ctx, 1, AddPaymentInput{InvoiceID: detail.ID, Mode: "CASH", Amount: decimal.Zero})
	require.ErrorIs(t, err, ErrNonPositiveAmount)

	_, err = svc.AddPayment(ctx, 1, AddPaymentInput{InvoiceID: 999, Mode: "CASH", Amount: dec("10")})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAddPaymentIdempotency(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	detail, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	input := AddPaymentInput{InvoiceID: detail.ID, Mode: "CASH", Amount: dec("100"), IdempotencyKey: "req-1"}
	_, err = svc.AddPayment(ctx, 1, input)
	require.NoError(t, err)

	_, err = svc.AddPayment(ctx, 1, input)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)

	detail, err = svc.Get(ctx, detail.ID)
	require.NoError(t, err)
	require.Len(t, detail.Payments, 1)
}

func TestListFiltersBySupplier(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	other := validInput()
	other.SupplierID = 8
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	summaries, total, err := svc.List(ctx, ListFilters{SupplierID: 7})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, summaries, 1)
	require.Equal(t, int64(7), summaries[0].SupplierID)
}
