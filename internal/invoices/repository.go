package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/genba-erp/genba-erp/internal/platform/db"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for invoices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `id, project_id, client_id, number, issue_date, expected_payment_date, total, status, notes, issued_at, paid_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var status string
	var issueDate, expectedDate pgtype.Date
	err := row.Scan(&inv.ID, &inv.ProjectID, &inv.ClientID, &inv.Number, &issueDate, &expectedDate,
		&inv.Total, &status, &inv.Notes, &inv.IssuedAt, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	inv.Status = Status(status)
	inv.IssueDate = issueDate.Time
	if expectedDate.Valid {
		t := expectedDate.Time
		inv.ExpectedPaymentDate = &t
	}
	return &inv, nil
}

// Create inserts a draft with its lines atomically. The number comes from a
// dedicated sequence so it is gapless per insert and never reused.
func (r *Repository) Create(ctx context.Context, clientID int64, input CreateInvoiceInput, lines []Line, total int64) (*Invoice, error) {
	var inv *Invoice
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&seq); err != nil {
			return err
		}
		number := fmt.Sprintf("INV-%06d", seq)
		row := tx.QueryRow(ctx, `
			INSERT INTO invoices (project_id, client_id, number, issue_date, total, status, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 'DRAFT', $6, NOW(), NOW())
			RETURNING `+invoiceColumns,
			input.ProjectID, clientID, number, input.IssueDate, total, input.Notes)
		var err error
		inv, err = scanInvoice(row)
		if err != nil {
			return err
		}
		return insertLines(ctx, tx, inv.ID, lines)
	})
	if err != nil {
		return nil, fmt.Errorf("invoices: create: %w", err)
	}
	inv.Lines = lines
	return inv, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, invoiceID int64, lines []Line) error {
	for i := range lines {
		err := tx.QueryRow(ctx, `
			INSERT INTO invoice_lines (invoice_id, description, quantity, unit_price, amount)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			invoiceID, lines[i].Description, lines[i].Quantity, lines[i].UnitPrice, lines[i].Amount).Scan(&lines[i].ID)
		if err != nil {
			return err
		}
		lines[i].InvoiceID = invoiceID
	}
	return nil
}

// Get loads an invoice with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("invoices: get: %w", err)
	}
	lines, err := r.listLines(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return inv, nil
}

func (r *Repository) listLines(ctx context.Context, invoiceID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price, amount
		FROM invoice_lines
		WHERE invoice_id = $1
		ORDER BY id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoices: list lines: %w", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Description, &l.Quantity, &l.UnitPrice, &l.Amount); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ReplaceLines swaps a draft's lines and total. Issued invoices are
// immutable.
func (r *Repository) ReplaceLines(ctx context.Context, id int64, lines []Line, total int64) (*Invoice, error) {
	var inv *Invoice
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE invoices SET total = $2, updated_at = NOW()
			WHERE id = $1 AND status = 'DRAFT'
			RETURNING `+invoiceColumns, id, total)
		var err error
		inv, err = scanInvoice(row)
		if err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				return fmt.Errorf("invoices: not an editable draft: %w", httpx.ErrConflict)
			}
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, id); err != nil {
			return err
		}
		return insertLines(ctx, tx, id, lines)
	})
	if err != nil {
		if errors.Is(err, httpx.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("invoices: replace lines: %w", err)
	}
	inv.Lines = lines
	return inv, nil
}

// Issue stamps the issue transition and the derived payment expectation.
// Guarded on DRAFT so a double issue loses the race cleanly.
func (r *Repository) Issue(ctx context.Context, id int64, expectedPaymentDate time.Time) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE invoices SET status = 'ISSUED', expected_payment_date = $2, issued_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'DRAFT'
		RETURNING `+invoiceColumns, id, expectedPaymentDate)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, fmt.Errorf("invoices: not issuable: %w", httpx.ErrConflict)
		}
		return nil, fmt.Errorf("invoices: issue: %w", err)
	}
	lines, err := r.listLines(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines
	return inv, nil
}

// MarkPaid closes an issued invoice.
func (r *Repository) MarkPaid(ctx context.Context, id int64) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE invoices SET status = 'PAID', paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'ISSUED'
		RETURNING `+invoiceColumns, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, fmt.Errorf("invoices: not an open issued invoice: %w", httpx.ErrConflict)
		}
		return nil, fmt.Errorf("invoices: mark paid: %w", err)
	}
	return inv, nil
}

// Delete removes a draft. Issued invoices stay for the ledger's sake.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_lines WHERE invoice_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM invoices WHERE id = $1 AND status = 'DRAFT'`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("invoices: draft %d: %w", id, httpx.ErrNotFound)
		}
		return nil
	})
}

// List returns a page of invoices matching the filter plus the unpaged
// match count, newest first. Lines are not loaded for listings.
func (r *Repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM invoices
		WHERE ($1 = 0 OR project_id = $1)
		  AND ($2 = 0 OR client_id = $2)
		  AND ($3 = '' OR status = $3)`,
		req.ProjectID, req.ClientID, string(req.Status)).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("invoices: count: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE ($1 = 0 OR project_id = $1)
		  AND ($2 = 0 OR client_id = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY issue_date DESC, id DESC
		LIMIT $4 OFFSET $5`,
		req.ProjectID, req.ClientID, string(req.Status), limit, req.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("invoices: list: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *inv)
	}
	return out, total, rows.Err()
}
