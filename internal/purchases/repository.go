package purchases

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
	ListInvoices(ctx context.Context, filters ListFilters) ([]Invoice, map[int64]string, int, error)
	AddPayment(ctx context.Context, invoiceID int64, payment Payment) (Payment, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// CreateInvoice writes the header and its lines atomically. Numbers come
// from a per-prefix sequence so they survive rollbacks with gaps, never
// duplicates.
func (r *pgRepository) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (int64, error) {
	var invoiceID int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var number string
		if err := tx.QueryRow(ctx,
			`SELECT 'PINV-' || to_char(CURRENT_DATE, 'YYYYMM') || '-' || lpad(nextval('purchase_invoice_number_seq')::text, 4, '0')`,
		).Scan(&number); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx,
			`INSERT INTO purchase_invoices (number, supplier_id, supplier_ref, invoice_date, discount, created_by, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NOW())
			 RETURNING id`,
			number, input.SupplierID, input.SupplierRef, input.InvoiceDate, input.Discount, input.CreatedBy,
		).Scan(&invoiceID); err != nil {
			return err
		}

		for _, line := range input.Lines {
			if _, err := tx.Exec(ctx,
				`INSERT INTO purchase_invoice_lines (invoice_id, product_id, qty, unit_price, markup_pct)
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
	var supplierName string
	err := r.pool.QueryRow(ctx,
		`SELECT i.id, i.number, i.supplier_id, i.supplier_ref, i.invoice_date, i.discount, i.created_by, i.created_at, s.name
		 FROM purchase_invoices i
		 JOIN suppliers s ON s.id = i.supplier_id
		 WHERE i.id = $1`,
		id,
	).Scan(&inv.ID, &inv.Number, &inv.SupplierID, &inv.SupplierRef, &inv.InvoiceDate, &inv.Discount, &inv.CreatedBy, &inv.CreatedAt, &supplierName)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, "", shared.ErrNotFound
	}
	return inv, supplierName, err
}

func (r *pgRepository) GetLines(ctx context.Context, invoiceID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT l.id, l.product_id, p.name, l.qty, l.unit_price, l.markup_pct
		 FROM purchase_invoice_lines l
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
		 FROM purchase_payments
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

func (r *pgRepository) ListInvoices(ctx context.Context, filters ListFilters) ([]Invoice, map[int64]string, int, error) {
	query := `SELECT i.id, i.number, i.supplier_id, i.supplier_ref, i.invoice_date, i.discount, i.created_by, i.created_at, s.name
	          FROM purchase_invoices i
	          JOIN suppliers s ON s.id = i.supplier_id
	          WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM purchase_invoices i WHERE 1=1`
	args := []interface{}{}
	countArgs := []interface{}{}
	argCount := 0

	if filters.SupplierID > 0 {
		argCount++
		clause := ` AND i.supplier_id = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, filters.SupplierID)
		countArgs = append(countArgs, filters.SupplierID)
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
	supplierNames := make(map[int64]string)
	for rows.Next() {
		var inv Invoice
		var name string
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.SupplierID, &inv.SupplierRef, &inv.InvoiceDate, &inv.Discount, &inv.CreatedBy, &inv.CreatedAt, &name); err != nil {
			return nil, nil, 0, err
		}
		invoices = append(invoices, inv)
		supplierNames[inv.ID] = name
	}
	return invoices, supplierNames, total, rows.Err()
}

func (r *pgRepository) AddPayment(ctx context.Context, invoiceID int64, payment Payment) (Payment, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO purchase_payments (invoice_id, number, mode, amount, bank_ref, paid_at, created_at)
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
