package loans

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

var (
	// ErrNonPositivePrincipal rejects loans without a positive principal.
	ErrNonPositivePrincipal = shared.ValidationError("loan principal must be positive")
	// ErrNegativeRate rejects negative interest rates.
	ErrNegativeRate = shared.ValidationError("interest rate cannot be negative")
	// ErrNegativeMonths rejects negative terms. Zero months is allowed and
	// yields a zero installment.
	ErrNegativeMonths = shared.ValidationError("loan term cannot be negative")
	// ErrNonPositiveRepayment rejects zero or negative repayment amounts.
	ErrNonPositiveRepayment = shared.ValidationError("repayment amount must be positive")
)

// Loan is an employee loan. Principal, rate and term are immutable after
// creation; the schedule is derived from them and never edited.
type Loan struct {
	ID         int64           `json:"id"`
	EmployeeID int64           `json:"employee_id"`
	Principal  decimal.Decimal `json:"principal"`
	RatePct    decimal.Decimal `json:"rate_pct"`
	Months     int             `json:"months"`
	IssuedAt   time.Time       `json:"issued_at"`
	Remarks    string          `json:"remarks,omitempty"`
	CreatedBy  int64           `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Repayment is an append-only record against a loan.
type Repayment struct {
	ID        int64           `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
	Remarks   string          `json:"remarks,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// LoanDetail is the full read model with the derived schedule and balance.
type LoanDetail struct {
	Loan
	EmployeeName string          `json:"employee_name"`
	Schedule     Schedule        `json:"schedule"`
	Repayments   []Repayment     `json:"repayments"`
	Repaid       decimal.Decimal `json:"repaid"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

// LoanSummary is one row of the loan listing.
type LoanSummary struct {
	Loan
	EmployeeName string          `json:"employee_name"`
	Schedule     Schedule        `json:"schedule"`
	Repaid       decimal.Decimal `json:"repaid"`
	Outstanding  decimal.Decimal `json:"outstanding"`
}

// CreateLoanInput carries a new loan through the service.
type CreateLoanInput struct {
	EmployeeID int64
	Principal  decimal.Decimal
	RatePct    decimal.Decimal
	Months     int
	IssuedAt   time.Time
	Remarks    string
	CreatedBy  int64
}

// AddRepaymentInput appends one repayment to a loan.
type AddRepaymentInput struct {
	LoanID         int64
	Amount         decimal.Decimal
	PaidAt         time.Time
	Remarks        string
	IdempotencyKey string
}

// ListFilters narrows the loan listing.
type ListFilters struct {
	EmployeeID int64
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
