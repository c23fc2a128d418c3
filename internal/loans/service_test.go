package loans

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	loans      map[int64]Loan
	repayments map[int64][]Repayment
	nextLoanID int64
	nextRepID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		loans:      make(map[int64]Loan),
		repayments: make(map[int64][]Repayment),
	}
}

func (r *memoryRepo) CreateLoan(ctx context.Context, input CreateLoanInput) (int64, error) {
	r.nextLoanID++
	id := r.nextLoanID
	r.loans[id] = Loan{
		ID:         id,
		EmployeeID: input.EmployeeID,
		Principal:  input.Principal,
		RatePct:    input.RatePct,
		Months:     input.Months,
		IssuedAt:   input.IssuedAt,
		Remarks:    input.Remarks,
		CreatedBy:  input.CreatedBy,
		CreatedAt:  time.Now(),
	}
	return id, nil
}

func (r *memoryRepo) GetLoan(ctx context.Context, id int64) (Loan, string, error) {
	loan, ok := r.loans[id]
	if !ok {
		return Loan{}, "", shared.ErrNotFound
	}
	return loan, "Test Employee", nil
}

func (r *memoryRepo) GetRepayments(ctx context.Context, loanID int64) ([]Repayment, error) {
	return append([]Repayment(nil), r.repayments[loanID]...), nil
}

func (r *memoryRepo) ListLoans(ctx context.Context, filters ListFilters) ([]Loan, map[int64]string, int, error) {
	var out []Loan
	names := make(map[int64]string)
	for _, loan := range r.loans {
		if filters.EmployeeID != 0 && loan.EmployeeID != filters.EmployeeID {
			continue
		}
		out = append(out, loan)
		names[loan.ID] = "Test Employee"
	}
	return out, names, len(out), nil
}

func (r *memoryRepo) ListAllLoans(ctx context.Context) ([]Loan, map[int64]string, error) {
	var out []Loan
	names := make(map[int64]string)
	for _, loan := range r.loans {
		out = append(out, loan)
		names[loan.ID] = "Test Employee"
	}
	return out, names, nil
}

func (r *memoryRepo) AddRepayment(ctx context.Context, loanID int64, repayment Repayment) (Repayment, error) {
	r.nextRepID++
	repayment.ID = r.nextRepID
	repayment.CreatedAt = time.Now()
	r.repayments[loanID] = append(r.repayments[loanID], repayment)
	return repayment, nil
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

func newTestService() *Service {
	return NewService(newMemoryRepo(), &memoryIdempotency{}, nil)
}

func TestCreateLoanDerivesSchedule(t *testing.T) {
	svc := newTestService()

	detail, err := svc.Create(context.Background(), CreateLoanInput{
		EmployeeID: 4,
		Principal:  dec("100000"),
		RatePct:    dec("12"),
		Months:     12,
		CreatedBy:  1,
	})
	require.NoError(t, err)
	require.True(t, detail.Schedule.Interest.Equal(dec("12000")))
	require.True(t, detail.Schedule.TotalPayable.Equal(dec("112000")))
	require.True(t, detail.Schedule.InstallmentPerMonth.Equal(dec("9333.33")))
	require.True(t, detail.Outstanding.Equal(dec("112000")))
}

func TestCreateLoanValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateLoanInput{EmployeeID: 4, Principal: decimal.Zero, Months: 12})
	require.ErrorIs(t, err, ErrNonPositivePrincipal)

	_, err = svc.Create(ctx, CreateLoanInput{EmployeeID: 4, Principal: dec("100"), RatePct: dec("-1"), Months: 12})
	require.ErrorIs(t, err, ErrNegativeRate)

	_, err = svc.Create(ctx, CreateLoanInput{EmployeeID: 4, Principal: dec("100"), Months: -1})
	require.ErrorIs(t, err, ErrNegativeMonths)

	_, err = svc.Create(ctx, CreateLoanInput{Principal: dec("100"), Months: 12})
	var vErr shared.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestRepaymentsReduceOutstanding(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	detail, err := svc.Create(ctx, CreateLoanInput{
		EmployeeID: 4,
		Principal:  dec("10000"),
		RatePct:    dec("12"),
		Months:     10,
		CreatedBy:  1,
	})
	require.NoError(t, err)
	require.True(t, detail.Schedule.TotalPayable.Equal(dec("11000")))

	_, err = svc.AddRepayment(ctx, 1, AddRepaymentInput{LoanID: detail.ID, Amount: dec("1100")})
	require.NoError(t, err)
	_, err = svc.AddRepayment(ctx, 1, AddRepaymentInput{LoanID: detail.ID, Amount: dec("1100")})
	require.NoError(t, err)

	detail, err = svc.Get(ctx, detail.ID)
	require.NoError(t, err)
	require.True(t, detail.Repaid.Equal(dec("2200")))
	require.True(t, detail.Outstanding.Equal(dec("8800")))
	require.Len(t, detail.Repayments, 2)
}

func TestRepaymentValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	detail, err := svc.Create(ctx, CreateLoanInput{EmployeeID: 4, Principal: dec("1000"), Months: 5, CreatedBy: 1})
	require.NoError(t, err)

	_, err = svc.AddRepayment(ctx, 1, AddRepaymentInput{LoanID: detail.ID, Amount: decimal.Zero})
	require.ErrorIs(t, err, ErrNonPositiveRepayment)

	_, err = svc.AddRepayment(ctx, 1, AddRepaymentInput{LoanID: 999, Amount: dec("10")})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRepaymentIdempotency(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	detail, err := svc.Create(ctx, CreateLoanInput{EmployeeID: 4, Principal: dec("1000"), Months: 5, CreatedBy: 1})
	require.NoError(t, err)

	input := AddRepaymentInput{LoanID: detail.ID, Amount: dec("200"), IdempotencyKey: "rep-1"}
	_, err = svc.AddRepayment(ctx, 1, input)
	require.NoError(t, err)

	_, err = svc.AddRepayment(ctx, 1, input)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
}

func TestOpenLoansSkipsSettled(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	open, err := svc.Create(ctx, CreateLoanInput{EmployeeID: 4, Principal: dec("1000"), Months: 5, CreatedBy: 1})
	require.NoError(t, err)

	settled, err := svc.Create(ctx, CreateLoanInput{EmployeeID: 5, Principal: dec("500"), Months: 0, CreatedBy: 1})
	require.NoError(t, err)
	_, err = svc.AddRepayment(ctx, 1, AddRepaymentInput{LoanID: settled.ID, Amount: dec("500")})
	require.NoError(t, err)

	loans, err := svc.OpenLoans(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	require.Equal(t, open.ID, loans[0].ID)
}
