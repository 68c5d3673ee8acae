package cashflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for cash-flow entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, source_type, source_id, direction, description, expected_date, expected_amount, actual_date, actual_amount, adjustment_amount, manual_override, override_reason, status, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var sourceType, direction, status string
	var expectedDate, actualDate pgtype.Date
	err := row.Scan(&e.ID, &sourceType, &e.SourceID, &direction, &e.Description,
		&expectedDate, &e.ExpectedAmount, &actualDate, &e.ActualAmount,
		&e.AdjustmentAmount, &e.ManualOverride, &e.OverrideReason, &status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	e.SourceType = SourceType(sourceType)
	e.Direction = Direction(direction)
	e.Status = Status(status)
	e.ExpectedDate = expectedDate.Time
	if actualDate.Valid {
		t := actualDate.Time
		e.ActualDate = &t
	}
	return &e, nil
}

// Insert stores a fully derived entry in EXPECTED state.
func (r *Repository) Insert(ctx context.Context, e Entry) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO cash_flow_entries (source_type, source_id, direction, description, expected_date, expected_amount, adjustment_amount, manual_override, override_reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, 'EXPECTED', NOW(), NOW())
		RETURNING `+entryColumns,
		string(e.SourceType), e.SourceID, string(e.Direction), e.Description,
		e.ExpectedDate, e.ExpectedAmount, e.ManualOverride, e.OverrideReason)
	out, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("cashflow: insert: %w", err)
	}
	return out, nil
}

// Get loads an entry by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Entry, error) {
	e, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM cash_flow_entries WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("cashflow: get: %w", err)
	}
	return e, nil
}

// UpdateStatus moves an entry between states, guarded on the current one.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE cash_flow_entries SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("cashflow: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cashflow: entry moved concurrently: %w", httpx.ErrConflict)
	}
	return nil
}

// Complete closes a confirmed entry with its actuals.
func (r *Repository) Complete(ctx context.Context, id int64, input CompleteInput) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE cash_flow_entries
		SET status = 'COMPLETED', actual_date = $2, actual_amount = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'CONFIRMED'
		RETURNING `+entryColumns,
		id, input.ActualDate, input.ActualAmount)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, fmt.Errorf("cashflow: not confirmable: %w", httpx.ErrConflict)
		}
		return nil, fmt.Errorf("cashflow: complete: %w", err)
	}
	return e, nil
}

// Override hand-adjusts the expectation on an open entry.
func (r *Repository) Override(ctx context.Context, id int64, input OverrideInput) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE cash_flow_entries
		SET expected_date = $2, expected_amount = $3, manual_override = TRUE, override_reason = $4, updated_at = NOW()
		WHERE id = $1 AND status IN ('EXPECTED', 'CONFIRMED')
		RETURNING `+entryColumns,
		id, input.ExpectedDate, input.ExpectedAmount, input.OverrideReason)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, fmt.Errorf("cashflow: entry closed: %w", httpx.ErrConflict)
		}
		return nil, fmt.Errorf("cashflow: override: %w", err)
	}
	return e, nil
}

// Adjust records offset netting effects on an open entry.
func (r *Repository) Adjust(ctx context.Context, id int64, amount int64) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE cash_flow_entries
		SET adjustment_amount = adjustment_amount + $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('EXPECTED', 'CONFIRMED')
		RETURNING `+entryColumns,
		id, amount)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, fmt.Errorf("cashflow: entry closed: %w", httpx.ErrConflict)
		}
		return nil, fmt.Errorf("cashflow: adjust: %w", err)
	}
	return e, nil
}

// List returns a page of entries matching the filter plus the unpaged match
// count, soonest expectation first.
func (r *Repository) List(ctx context.Context, req ListEntriesRequest) ([]Entry, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM cash_flow_entries
		WHERE ($1 = '' OR source_type = $1)
		  AND ($2 = '' OR direction = $2)
		  AND ($3 = '' OR status = $3)
		  AND ($4::date IS NULL OR expected_date >= $4)
		  AND ($5::date IS NULL OR expected_date <= $5)`,
		string(req.SourceType), string(req.Direction), string(req.Status), req.From, req.To).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("cashflow: count: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM cash_flow_entries
		WHERE ($1 = '' OR source_type = $1)
		  AND ($2 = '' OR direction = $2)
		  AND ($3 = '' OR status = $3)
		  AND ($4::date IS NULL OR expected_date >= $4)
		  AND ($5::date IS NULL OR expected_date <= $5)
		ORDER BY expected_date, id
		LIMIT $6 OFFSET $7`,
		string(req.SourceType), string(req.Direction), string(req.Status), req.From, req.To, limit, req.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("cashflow: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

// OpenEntriesBetween returns non-cancelled entries with an expected date in
// the window, used by the forecast.
func (r *Repository) OpenEntriesBetween(ctx context.Context, from, to time.Time) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM cash_flow_entries
		WHERE status <> 'CANCELLED' AND expected_date BETWEEN $1 AND $2
		ORDER BY expected_date, id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("cashflow: forecast window: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
