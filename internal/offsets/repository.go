package offsets

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/genba-erp/genba-erp/internal/platform/db"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for the offset ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const offsetColumns = `id, partner_id, year_month, carryover, offset_amount, revenue_amount, balance, status, confirmed_by, confirmed_at, created_at, updated_at`

func scanOffset(row pgx.Row) (*Offset, error) {
	var o Offset
	var status string
	err := row.Scan(&o.ID, &o.PartnerID, &o.YearMonth, &o.Carryover, &o.OffsetAmount, &o.RevenueAmount,
		&o.Balance, &status, &o.ConfirmedBy, &o.ConfirmedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}

// Create opens a draft period. The partner row is locked so the carryover
// snapshot and the insert see a consistent balance.
func (r *Repository) Create(ctx context.Context, input CreateOffsetInput) (*Offset, error) {
	var o *Offset
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var carryover int64
		err := tx.QueryRow(ctx, `SELECT carryover_balance FROM partners WHERE id = $1 FOR UPDATE`, input.PartnerID).Scan(&carryover)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("partner %d: %w", input.PartnerID, httpx.ErrNotFound)
			}
			return err
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO offsets (partner_id, year_month, carryover, offset_amount, revenue_amount, balance, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 0, 'DRAFT', NOW(), NOW())
			RETURNING `+offsetColumns,
			input.PartnerID, input.YearMonth, carryover, input.OffsetAmount, input.RevenueAmount)
		o, err = scanOffset(row)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("offsets: period %s exists for partner %d: %w", input.YearMonth, input.PartnerID, httpx.ErrDuplicate)
		}
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("offsets: create: %w", err)
	}
	return o, nil
}

// Get loads a ledger row by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Offset, error) {
	o, err := scanOffset(r.pool.QueryRow(ctx, `SELECT `+offsetColumns+` FROM offsets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("offsets: get: %w", err)
	}
	return o, nil
}

// UpdateAmounts adjusts a draft's amounts. Confirmed rows are immutable.
func (r *Repository) UpdateAmounts(ctx context.Context, id int64, input UpdateOffsetInput) (*Offset, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE offsets SET offset_amount = $2, revenue_amount = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'DRAFT'
		RETURNING `+offsetColumns,
		id, input.OffsetAmount, input.RevenueAmount)
	o, err := scanOffset(row)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, fmt.Errorf("offsets: not an editable draft: %w", httpx.ErrConflict)
		}
		return nil, fmt.Errorf("offsets: update amounts: %w", err)
	}
	return o, nil
}

// Confirm finalizes the period. The balance lands on the ledger row and on
// partners.carryover_balance in the same transaction; a partial write would
// corrupt the chain.
func (r *Repository) Confirm(ctx context.Context, id, actorID int64) (*Offset, error) {
	var o *Offset
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+offsetColumns+` FROM offsets WHERE id = $1 FOR UPDATE`, id)
		cur, err := scanOffset(row)
		if err != nil {
			return err
		}
		if cur.Status != StatusDraft {
			return fmt.Errorf("offsets: period already confirmed: %w", httpx.ErrConflict)
		}
		balance := cur.ComputedBalance()
		row = tx.QueryRow(ctx, `
			UPDATE offsets SET balance = $2, status = 'CONFIRMED', confirmed_by = $3, confirmed_at = NOW(), updated_at = NOW()
			WHERE id = $1
			RETURNING `+offsetColumns, id, balance, actorID)
		o, err = scanOffset(row)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE partners SET carryover_balance = $2, updated_at = NOW() WHERE id = $1`, cur.PartnerID, balance)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("partner %d: %w", cur.PartnerID, httpx.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, httpx.ErrConflict) || errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("offsets: confirm: %w", err)
	}
	return o, nil
}

// List returns a page of ledger rows matching the filter plus the unpaged
// match count, newest period first.
func (r *Repository) List(ctx context.Context, req ListOffsetsRequest) ([]Offset, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM offsets
		WHERE ($1 = 0 OR partner_id = $1)
		  AND ($2 = '' OR status = $2)`,
		req.PartnerID, string(req.Status)).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("offsets: count: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+offsetColumns+`
		FROM offsets
		WHERE ($1 = 0 OR partner_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY year_month DESC, id DESC
		LIMIT $3 OFFSET $4`,
		req.PartnerID, string(req.Status), limit, req.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("offsets: list: %w", err)
	}
	defer rows.Close()

	var out []Offset
	for rows.Next() {
		o, err := scanOffset(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
	}
	return out, total, rows.Err()
}
