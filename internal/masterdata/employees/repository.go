package employees

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
	internalShared "github.com/meridian-erp/meridian-erp/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Employee, int, error)
	Get(ctx context.Context, id int64) (Employee, error)
	Create(ctx context.Context, employee Employee) (Employee, error)
	Update(ctx context.Context, id int64, employee Employee) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const employeeColumns = `id, code, name, designation, phone, monthly_salary, joined_at, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Employee, int, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		query += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	countQuery := `SELECT COUNT(*) FROM employees WHERE 1=1`
	countArgs := []interface{}{}
	if filters.Search != "" {
		countArgs = append(countArgs, "%"+filters.Search+"%")
		countQuery += ` AND (name ILIKE $1 OR code ILIKE $1)`
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)

	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, filters.Limit)

	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filters.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Code, &e.Name, &e.Designation, &e.Phone, &e.MonthlySalary, &e.JoinedAt, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		employees = append(employees, e)
	}
	return employees, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	var e Employee
	err := r.db.QueryRow(ctx, query, id).Scan(&e.ID, &e.Code, &e.Name, &e.Designation, &e.Phone, &e.MonthlySalary, &e.JoinedAt, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, internalShared.ErrNotFound
	}
	return e, err
}

func (r *repository) Create(ctx context.Context, employee Employee) (Employee, error) {
	query := `INSERT INTO employees (code, name, designation, phone, monthly_salary, joined_at, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	now := time.Now()
	err := r.db.QueryRow(ctx, query, employee.Code, employee.Name, employee.Designation, employee.Phone, employee.MonthlySalary, employee.JoinedAt, employee.IsActive, now, now).Scan(&employee.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Employee{}, internalShared.ErrDuplicate
		}
		return Employee{}, err
	}
	employee.CreatedAt = now
	employee.UpdatedAt = now
	return employee, nil
}

func (r *repository) Update(ctx context.Context, id int64, employee Employee) error {
	query := `UPDATE employees SET code = $1, name = $2, designation = $3, phone = $4, monthly_salary = $5, joined_at = $6, is_active = $7, updated_at = $8 WHERE id = $9`
	tag, err := r.db.Exec(ctx, query, employee.Code, employee.Name, employee.Designation, employee.Phone, employee.MonthlySalary, employee.JoinedAt, employee.IsActive, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return internalShared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return internalShared.ErrNotFound
	}
	return nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "code":
		return "code " + dir
	case "name":
		return "name " + dir
	case "joined_at":
		return "joined_at " + dir
	default:
		return "name " + dir
	}
}
