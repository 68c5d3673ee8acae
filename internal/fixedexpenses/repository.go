package fixedexpenses

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for schedules.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const scheduleColumns = `id, name, amount, payment_day, active_from, active_until, created_at, updated_at`

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	var until *string
	err := row.Scan(&s.ID, &s.Name, &s.Amount, &s.PaymentDay, &s.ActiveFrom, &until, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	if until != nil {
		s.ActiveUntil = *until
	}
	return &s, nil
}

// Create inserts a schedule.
func (r *Repository) Create(ctx context.Context, input CreateScheduleInput) (*Schedule, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO fixed_expense_schedules (name, amount, payment_day, active_from, active_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NOW(), NOW())
		RETURNING `+scheduleColumns,
		input.Name, input.Amount, input.PaymentDay, input.ActiveFrom, input.ActiveUntil)
	s, err := scanSchedule(row)
	if err != nil {
		return nil, fmt.Errorf("fixedexpenses: create: %w", err)
	}
	return s, nil
}

// Get loads a schedule by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Schedule, error) {
	s, err := scanSchedule(r.pool.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM fixed_expense_schedules WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fixedexpenses: get: %w", err)
	}
	return s, nil
}

// Update mutates schedule fields.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateScheduleInput) (*Schedule, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE fixed_expense_schedules
		SET name = $2, amount = $3, payment_day = $4, active_until = NULLIF($5, ''), updated_at = NOW()
		WHERE id = $1
		RETURNING `+scheduleColumns,
		id, input.Name, input.Amount, input.PaymentDay, input.ActiveUntil)
	s, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fixedexpenses: update: %w", err)
	}
	return s, nil
}

// List returns all schedules.
func (r *Repository) List(ctx context.Context) ([]Schedule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+scheduleColumns+` FROM fixed_expense_schedules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("fixedexpenses: list: %w", err)
	}
	defer rows.Close()

	var out []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// ListActiveFor returns schedules whose active range covers the period.
func (r *Repository) ListActiveFor(ctx context.Context, yearMonth string) ([]Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+scheduleColumns+`
		FROM fixed_expense_schedules
		WHERE active_from <= $1 AND (active_until IS NULL OR active_until >= $1)
		ORDER BY id`, yearMonth)
	if err != nil {
		return nil, fmt.Errorf("fixedexpenses: list active: %w", err)
	}
	defer rows.Close()

	var out []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// MarkGenerated records that the schedule seeded the period. The unique
// (schedule_id, year_month) index makes generation idempotent.
func (r *Repository) MarkGenerated(ctx context.Context, scheduleID int64, yearMonth string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO fixed_expense_generations (schedule_id, year_month, created_at)
		VALUES ($1, $2, NOW())`, scheduleID, yearMonth)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return fmt.Errorf("fixedexpenses: mark generated: %w", err)
	}
	return nil
}
