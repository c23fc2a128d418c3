package sales

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type Repository interface {
	CreateInvoice(ctx context.Context, input CreateInvoiceInput) (int64, error)
	GetInvoice(ctx context.Context, id int64) (Invoice, string, error)
	GetLines(ctx context.Context, invoiceID int64) ([]Line, error)
	GetPayments(ctx context.Context, invoiceID int64) ([]Payment, error)
	GetReturns(ctx context.Context, invoiceID int64) ([]Return, error)
	ListInvoices(ctx context.Context, filters ListFilters) ([]Invoice, map[int64]string, int, error)
	ListOpenInvoices(ctx context.Context, before time.Time) ([]Invoice, map[int64]string, error)
	AddPayment(ctx context.Context, invoiceID int64, payment Payment) (Payment, error)
	AddReturn(ctx context.Context, invoiceID int64, ret Return) (Return, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (int64, error) {
	var invoiceID int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var number string
		if err := tx.QueryRow(ctx,
			`SELECT 'SINV-' || to_char(CURRENT_DATE, 'YYYYMM') || '-' || lpad(nextval('sale_invoice_number_seq')::text, 4, '0')`,
		).Scan(&number); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx,
			`INSERT INTO sale_invoices (number, customer_id, invoice_date, discount, created_by, created_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())
			 RETURNING id`,
			number, input.CustomerID, input.InvoiceDate, input.Discount, input.CreatedBy,
		).Scan(&invoiceID); err != nil {
			return err
		}

		for _, line := range input.Lines {
			if _, err := tx.Exec(ctx,
				`INSERT INTO sale_invoice_lines (invoice_id, product_id, qty, unit_price, markup_pct)
				 VALUES ($1, $2, $3, $4, $5)`,
				invoiceID, line.ProductID, line.Qty, line.UnitPrice, line.MarkupPct,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return invoiceID, nil
}

func (r *pgRepository) GetInvoice(ctx context.Context, id int64) (Invoice, string, error) {
	var inv Invoice
	var customerName string
	err := r.pool.QueryRow(ctx,
		`SELECT i.id, i.number, i.customer_id, i.invoice_date, i.discount, i.created_by, i.created_at, c.name
		 FROM sale_invoices i
		 JOIN customers c ON c.id = i.customer_id
		 WHERE i.id = $1`,
		id,
	).Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.InvoiceDate, &inv.Discount, &inv.CreatedBy, &inv.CreatedAt, &customerName)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, "", shared.ErrNotFound
	}
	return inv, customerName, err
}

func (r *pgRepository) GetLines(ctx context.Context, invoiceID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT l.id, l.product_id, p.name, l.qty, l.unit_price, l.markup_pct
		 FROM sale_invoice_lines l
		 JOIN products p ON p.id = l.product_id
		 WHERE l.invoice_id = $1
		 ORDER BY l.id`,
		invoiceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.ProductID, &l.ProductName, &l.Qty, &l.UnitPrice, &l.MarkupPct); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *pgRepository) GetPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, number, mode, amount, bank_ref, paid_at, created_at
		 FROM sale_payments
		 WHERE invoice_id = $1
		 ORDER BY id`,
		invoiceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.Number, &p.Mode, &p.Amount, &p.BankRef, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *pgRepository) GetReturns(ctx context.Context, invoiceID int64) ([]Return, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, line_item_id, qty, amount, remarks, returned_at, created_at
		 FROM sale_returns
		 WHERE invoice_id = $1
		 ORDER BY id`,
		invoiceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var returns []Return
	for rows.Next() {
		var ret Return
		if err := rows.Scan(&ret.ID, &ret.LineItemID, &ret.Qty, &ret.Amount, &ret.Remarks, &ret.ReturnedAt, &ret.CreatedAt); err != nil {
			return nil, err
		}
		returns = append(returns, ret)
	}
	return returns, rows.Err()
}

func (r *pgRepository) ListInvoices(ctx context.Context, filters ListFilters) ([]Invoice, map[int64]string, int, error) {
	query := `SELECT i.id, i.number, i.customer_id, i.invoice_date, i.discount, i.created_by, i.created_at, c.name
	          FROM sale_invoices i
	          JOIN customers c ON c.id = i.customer_id
	          WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM sale_invoices i WHERE 1=1`
	args := []interface{}{}
	countArgs := []interface{}{}
	argCount := 0

	if filters.CustomerID > 0 {
		argCount++
		clause := ` AND i.customer_id = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, filters.CustomerID)
		countArgs = append(countArgs, filters.CustomerID)
	}
	if !filters.From.IsZero() {
		argCount++
		clause := ` AND i.invoice_date >= $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, filters.From)
		countArgs = append(countArgs, filters.From)
	}
	if !filters.To.IsZero() {
		argCount++
		clause := ` AND i.invoice_date <= $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, filters.To)
		countArgs = append(countArgs, filters.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, nil, 0, err
	}

	query += ` ORDER BY i.invoice_date DESC, i.id DESC`
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

	var invoices []Invoice
	customerNames := make(map[int64]string)
	for rows.Next() {
		var inv Invoice
		var name string
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.InvoiceDate, &inv.Discount, &inv.CreatedBy, &inv.CreatedAt, &name); err != nil {
			return nil, nil, 0, err
		}
		invoices = append(invoices, inv)
		customerNames[inv.ID] = name
	}
	return invoices, customerNames, total, rows.Err()
}

// ListOpenInvoices returns every invoice dated before the cutoff. Whether an
// invoice is actually due is decided by the caller; the outstanding balance
// is never stored.
func (r *pgRepository) ListOpenInvoices(ctx context.Context, before time.Time) ([]Invoice, map[int64]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT i.id, i.number, i.customer_id, i.invoice_date, i.discount, i.created_by, i.created_at, c.name
		 FROM sale_invoices i
		 JOIN customers c ON c.id = i.customer_id
		 WHERE i.invoice_date < $1
		 ORDER BY i.invoice_date, i.id`,
		before,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	customerNames := make(map[int64]string)
	for rows.Next() {
		var inv Invoice
		var name string
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.CustomerID, &inv.InvoiceDate, &inv.Discount, &inv.CreatedBy, &inv.CreatedAt, &name); err != nil {
			return nil, nil, err
		}
		invoices = append(invoices, inv)
		customerNames[inv.ID] = name
	}
	return invoices, customerNames, rows.Err()
}

func (r *pgRepository) AddPayment(ctx context.Context, invoiceID int64, payment Payment) (Payment, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sale_payments (invoice_id, number, mode, amount, bank_ref, paid_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		invoiceID, payment.Number, payment.Mode, payment.Amount, payment.BankRef, payment.PaidAt, now,
	).Scan(&payment.ID)
	if err != nil {
		return Payment{}, err
	}
	payment.CreatedAt = now
	return payment, nil
}

func (r *pgRepository) AddReturn(ctx context.Context, invoiceID int64, ret Return) (Return, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sale_returns (invoice_id, line_item_id, qty, amount, remarks, returned_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		invoiceID, ret.LineItemID, ret.Qty, ret.Amount, ret.Remarks, ret.ReturnedAt, now,
	).Scan(&ret.ID)
	if err != nil {
		return Return{}, err
	}
	ret.CreatedAt = now
	return ret, nil
}
