package loans

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

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
}

func NewService(repo Repository, idempotency IdempotencyGuard, audit AuditRecorder) *Service {
	return &Service{repo: repo, idempotency: idempotency, audit: audit}
}

// Create issues a loan. The schedule follows from principal, rate and term,
// all of which are immutable afterwards.
func (s *Service) Create(ctx context.Context, input CreateLoanInput) (LoanDetail, error) {
	if input.EmployeeID <= 0 {
		return LoanDetail{}, shared.ValidationError("employee is required")
	}
	if !input.Principal.IsPositive() {
		return LoanDetail{}, ErrNonPositivePrincipal
	}
	if input.RatePct.IsNegative() {
		return LoanDetail{}, ErrNegativeRate
	}
	if input.Months < 0 {
		return LoanDetail{}, ErrNegativeMonths
	}
	if input.IssuedAt.IsZero() {
		input.IssuedAt = time.Now()
	}

	id, err := s.repo.CreateLoan(ctx, input)
	if err != nil {
		return LoanDetail{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.CreatedBy,
			Action:   "create",
			Entity:   "employee_loan",
			EntityID: strconv.FormatInt(id, 10),
		})
	}

	return s.Get(ctx, id)
}

// Get assembles the loan with its derived schedule and balance.
func (s *Service) Get(ctx context.Context, id int64) (LoanDetail, error) {
	loan, employeeName, err := s.repo.GetLoan(ctx, id)
	if err != nil {
		return LoanDetail{}, err
	}
	repayments, err := s.repo.GetRepayments(ctx, id)
	if err != nil {
		return LoanDetail{}, err
	}

	schedule := ComputeSchedule(loan.Principal, loan.RatePct, loan.Months)
	repaid := decimal.Zero
	for _, rep := range repayments {
		repaid = repaid.Add(rep.Amount)
	}

	return LoanDetail{
		Loan:         loan,
		EmployeeName: employeeName,
		Schedule:     schedule,
		Repayments:   repayments,
		Repaid:       repaid.Round(2),
		Outstanding:  schedule.TotalPayable.Sub(repaid).Round(2),
	}, nil
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]LoanSummary, int, error) {
	filters.Normalize()

	loans, employeeNames, total, err := s.repo.ListLoans(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]LoanSummary, 0, len(loans))
	for _, loan := range loans {
		repayments, err := s.repo.GetRepayments(ctx, loan.ID)
		if err != nil {
			return nil, 0, err
		}
		schedule := ComputeSchedule(loan.Principal, loan.RatePct, loan.Months)
		repaid := decimal.Zero
		for _, rep := range repayments {
			repaid = repaid.Add(rep.Amount)
		}
		summaries = append(summaries, LoanSummary{
			Loan:         loan,
			EmployeeName: employeeNames[loan.ID],
			Schedule:     schedule,
			Repaid:       repaid.Round(2),
			Outstanding:  schedule.TotalPayable.Sub(repaid).Round(2),
		})
	}
	return summaries, total, nil
}

// AddRepayment appends one repayment. The balance is never clamped; an
// overpaid loan shows a negative outstanding.
func (s *Service) AddRepayment(ctx context.Context, actorID int64, input AddRepaymentInput) (Repayment, error) {
	if !input.Amount.IsPositive() {
		return Repayment{}, ErrNonPositiveRepayment
	}

	if _, _, err := s.repo.GetLoan(ctx, input.LoanID); err != nil {
		return Repayment{}, err
	}

	if input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "loans"); err != nil {
			return Repayment{}, err
		}
	}

	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	repayment, err := s.repo.AddRepayment(ctx, input.LoanID, Repayment{
		Amount:  input.Amount,
		PaidAt:  paidAt,
		Remarks: strings.TrimSpace(input.Remarks),
	})
	if err != nil {
		if input.IdempotencyKey != "" {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return Repayment{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "add_repayment",
			Entity:   "employee_loan",
			EntityID: strconv.FormatInt(input.LoanID, 10),
			Meta:     map[string]any{"amount": repayment.Amount.String()},
		})
	}
	return repayment, nil
}

// OpenLoans lists loans that still carry a positive outstanding balance.
// The monthly installment scan works off this.
func (s *Service) OpenLoans(ctx context.Context) ([]LoanSummary, error) {
	loans, employeeNames, err := s.repo.ListAllLoans(ctx)
	if err != nil {
		return nil, err
	}

	var open []LoanSummary
	for _, loan := range loans {
		repayments, err := s.repo.GetRepayments(ctx, loan.ID)
		if err != nil {
			return nil, err
		}
		schedule := ComputeSchedule(loan.Principal, loan.RatePct, loan.Months)
		repaid := decimal.Zero
		for _, rep := range repayments {
			repaid = repaid.Add(rep.Amount)
		}
		outstanding := schedule.TotalPayable.Sub(repaid).Round(2)
		if !outstanding.IsPositive() {
			continue
		}
		open = append(open, LoanSummary{
			Loan:         loan,
			EmployeeName: employeeNames[loan.ID],
			Schedule:     schedule,
			Repaid:       repaid.Round(2),
			Outstanding:  outstanding,
		})
	}
	return open, nil
}
