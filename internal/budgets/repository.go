package budgets

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

// Repository provides PostgreSQL backed persistence for budgets.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a budget with its lines. One budget per project, enforced
// by a unique index on project_id.
func (r *Repository) Create(ctx context.Context, input CreateBudgetInput) (*Budget, error) {
	var b *Budget
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		b = &Budget{
			ProjectID: input.ProjectID,
			Status:    StatusDraft,
			Rates:     input.Rates,
			CreatedBy: input.CreatedBy,
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO budgets (project_id, status, rate_regular, rate_temporary, rate_outsourced, created_by, created_at, updated_at)
			VALUES ($1, 'DRAFT', $2, $3, $4, $5, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			input.ProjectID, input.Rates.Regular, input.Rates.Temporary, input.Rates.Outsourced, input.CreatedBy,
		).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return err
		}
		lines, err := insertLines(ctx, tx, b.ID, input.Lines)
		if err != nil {
			return err
		}
		b.Lines = lines
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("budgets: project %d already budgeted: %w", input.ProjectID, httpx.ErrDuplicate)
		}
		return nil, fmt.Errorf("budgets: create: %w", err)
	}
	return b, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, budgetID int64, lines []BudgetLineInput) ([]BudgetLine, error) {
	out := make([]BudgetLine, 0, len(lines))
	for _, line := range lines {
		l := BudgetLine{
			BudgetID:      budgetID,
			Category:      line.Category,
			PlannedAmount: line.PlannedAmount,
			Note:          line.Note,
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO budget_lines (budget_id, category, planned_amount, note)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			budgetID, string(line.Category), line.PlannedAmount, line.Note,
		).Scan(&l.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// GetByProject loads the project's budget with lines.
func (r *Repository) GetByProject(ctx context.Context, projectID int64) (*Budget, error) {
	var b Budget
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT id, project_id, status, rate_regular, rate_temporary, rate_outsourced, confirmed_by, confirmed_at, created_by, created_at, updated_at
		FROM budgets WHERE project_id = $1`, projectID,
	).Scan(&b.ID, &b.ProjectID, &status, &b.Rates.Regular, &b.Rates.Temporary, &b.Rates.Outsourced,
		&b.ConfirmedBy, &b.ConfirmedAt, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("budgets: get: %w", err)
	}
	b.Status = Status(status)

	rows, err := r.pool.Query(ctx, `
		SELECT id, budget_id, category, planned_amount, note
		FROM budget_lines WHERE budget_id = $1 ORDER BY id`, b.ID)
	if err != nil {
		return nil, fmt.Errorf("budgets: lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l BudgetLine
		var cat string
		if err := rows.Scan(&l.ID, &l.BudgetID, &cat, &l.PlannedAmount, &l.Note); err != nil {
			return nil, err
		}
		l.Category = Category(cat)
		b.Lines = append(b.Lines, l)
	}
	return &b, rows.Err()
}

// ReplaceLines swaps a draft budget's lines and rates atomically.
func (r *Repository) ReplaceLines(ctx context.Context, budgetID int64, input UpdateBudgetInput) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE budgets
			SET rate_regular = $2, rate_temporary = $3, rate_outsourced = $4, updated_at = NOW()
			WHERE id = $1 AND status = 'DRAFT'`,
			budgetID, input.Rates.Regular, input.Rates.Temporary, input.Rates.Outsourced)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrConflict
		}
		if _, err := tx.Exec(ctx, `DELETE FROM budget_lines WHERE budget_id = $1`, budgetID); err != nil {
			return err
		}
		_, err = insertLines(ctx, tx, budgetID, input.Lines)
		return err
	})
	if err != nil {
		if errors.Is(err, httpx.ErrConflict) {
			return fmt.Errorf("budgets: not editable: %w", httpx.ErrConflict)
		}
		return fmt.Errorf("budgets: replace lines: %w", err)
	}
	return nil
}

// Confirm freezes the budget as the project baseline.
func (r *Repository) Confirm(ctx context.Context, budgetID, actorID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE budgets SET status = 'CONFIRMED', confirmed_by = $2, confirmed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'DRAFT'`, budgetID, actorID)
	if err != nil {
		return fmt.Errorf("budgets: confirm: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("budgets: already confirmed or missing: %w", httpx.ErrConflict)
	}
	return nil
}

// ActualsByCategory sums confirmed daily report entry costs per category for
// a project. Draft reports are excluded until confirmed.
func (r *Repository) ActualsByCategory(ctx context.Context, projectID int64) (map[Category]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.category, COALESCE(SUM(e.amount), 0)
		FROM daily_report_entries e
		JOIN daily_reports d ON d.id = e.daily_report_id
		WHERE d.project_id = $1 AND d.status <> 'DRAFT'
		GROUP BY e.category`, projectID)
	if err != nil {
		return nil, fmt.Errorf("budgets: actuals: %w", err)
	}
	defer rows.Close()

	out := make(map[Category]int64)
	for rows.Next() {
		var cat string
		var amount int64
		if err := rows.Scan(&cat, &amount); err != nil {
			return nil, err
		}
		out[Category(cat)] = amount
	}
	return out, rows.Err()
}
