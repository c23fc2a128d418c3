package loans

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type Repository interface {
	CreateLoan(ctx context.Context, input CreateLoanInput) (int64, error)
	GetLoan(ctx context.Context, id int64) (Loan, string, error)
	GetRepayments(ctx context.Context, loanID int64) ([]Repayment, error)
	ListLoans(ctx context.Context, filters ListFilters) ([]Loan, map[int64]string, int, error)
	ListAllLoans(ctx context.Context) ([]Loan, map[int64]string, error)
	AddRepayment(ctx context.Context, loanID int64, repayment Repayment) (Repayment, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) CreateLoan(ctx context.Context, input CreateLoanInput) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO employee_loans (employee_id, principal, rate_pct, months, issued_at, remarks, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 RETURNING id`,
		input.EmployeeID, input.Principal, input.RatePct, input.Months, input.IssuedAt, input.Remarks, input.CreatedBy,
	).Scan(&id)
	return id, err
}

func (r *pgRepository) GetLoan(ctx context.Context, id int64) (Loan, string, error) {
	var loan Loan
	var employeeName string
	err := r.pool.QueryRow(ctx,
		`SELECT l.id, l.employee_id, l.principal, l.rate_pct, l.months, l.issued_at, l.remarks, l.created_by, l.created_at, e.name
		 FROM employee_loans l
		 JOIN employees e ON e.id = l.employee_id
		 WHERE l.id = $1`,
		id,
	).Scan(&loan.ID, &loan.EmployeeID, &loan.Principal, &loan.RatePct, &loan.Months, &loan.IssuedAt, &loan.Remarks, &loan.CreatedBy, &loan.CreatedAt, &employeeName)
	if errors.Is(err, pgx.ErrNoRows) {
		return Loan{}, "", shared.ErrNotFound
	}
	return loan, employeeName, err
}

func (r *pgRepository) GetRepayments(ctx context.Context, loanID int64) ([]Repayment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, amount, paid_at, remarks, created_at
		 FROM employee_loan_repayments
		 WHERE loan_id = $1
		 ORDER BY id`,
		loanID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repayments []Repayment
	for rows.Next() {
		var rep Repayment
		if err := rows.Scan(&rep.ID, &rep.Amount, &rep.PaidAt, &rep.Remarks, &rep.CreatedAt); err != nil {
			return nil, err
		}
		repayments = append(repayments, rep)
	}
	return repayments, rows.Err()
}

func (r *pgRepository) ListLoans(ctx context.Context, filters ListFilters) ([]Loan, map[int64]string, int, error) {
	query := `SELECT l.id, l.employee_id, l.principal, l.rate_pct, l.months, l.issued_at, l.remarks, l.created_by, l.created_at, e.name
	          FROM employee_loans l
	          JOIN employees e ON e.id = l.employee_id
	          WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM employee_loans l WHERE 1=1`
	args := []interface{}{}
	countArgs := []interface{}{}
	argCount := 0

	if filters.EmployeeID > 0 {
		argCount++
		clause := ` AND l.employee_id = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, filters.EmployeeID)
		countArgs = append(countArgs, filters.EmployeeID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, nil, 0, err
	}

	query += ` ORDER BY l.issued_at DESC, l.id DESC`
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, filters.Limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filters.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, 0, err
	}
	defer rows.Close()

	var loans []Loan
	employeeNames := make(map[int64]string)
	for rows.Next() {
		var loan Loan
		var name string
		if err := rows.Scan(&loan.ID, &loan.EmployeeID, &loan.Principal, &loan.RatePct, &loan.Months, &loan.IssuedAt, &loan.Remarks, &loan.CreatedBy, &loan.CreatedAt, &name); err != nil {
			return nil, nil, 0, err
		}
		loans = append(loans, loan)
		employeeNames[loan.ID] = name
	}
	return loans, employeeNames, total, rows.Err()
}

// ListAllLoans feeds the monthly installment scan.
func (r *pgRepository) ListAllLoans(ctx context.Context) ([]Loan, map[int64]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT l.id, l.employee_id, l.principal, l.rate_pct, l.months, l.issued_at, l.remarks, l.created_by, l.created_at, e.name
		 FROM employee_loans l
		 JOIN employees e ON e.id = l.employee_id
		 ORDER BY l.id`,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var loans []Loan
	employeeNames := make(map[int64]string)
	for rows.Next() {
		var loan Loan
		var name string
		if err := rows.Scan(&loan.ID, &loan.EmployeeID, &loan.Principal, &loan.RatePct, &loan.Months, &loan.IssuedAt, &loan.Remarks, &loan.CreatedBy, &loan.CreatedAt, &name); err != nil {
			return nil, nil, err
		}
		loans = append(loans, loan)
		employeeNames[loan.ID] = name
	}
	return loans, employeeNames, rows.Err()
}

func (r *pgRepository) AddRepayment(ctx context.Context, loanID int64, repayment Repayment) (Repayment, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO employee_loan_repayments (loan_id, amount, paid_at, remarks, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		loanID, repayment.Amount, repayment.PaidAt, repayment.Remarks, now,
	).Scan(&repayment.ID)
	if err != nil {
		return Repayment{}, err
	}
	repayment.CreatedAt = now
	return repayment, nil
}
