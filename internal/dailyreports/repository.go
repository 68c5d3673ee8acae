package dailyreports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/genba-erp/genba-erp/internal/budgets"
	"github.com/genba-erp/genba-erp/internal/platform/db"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for daily reports.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const reportColumns = `id, project_id, report_date, external_site, status, note, labor_cost, material_cost, outsourcing_cost, expense_cost, transportation_cost, created_by, confirmed_by, confirmed_at, revised_by, revised_at, created_at, updated_at`

func scanReport(row pgx.Row) (*DailyReport, error) {
	var d DailyReport
	var status string
	var reportDate pgtype.Date
	err := row.Scan(&d.ID, &d.ProjectID, &reportDate, &d.ExternalSite, &status, &d.Note,
		&d.Totals.LaborCost, &d.Totals.MaterialCost, &d.Totals.OutsourcingCost, &d.Totals.ExpenseCost, &d.Totals.TransportationCost,
		&d.CreatedBy, &d.ConfirmedBy, &d.ConfirmedAt, &d.RevisedBy, &d.RevisedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	d.Status = Status(status)
	d.ReportDate = reportDate.Time
	return &d, nil
}

// Create inserts a draft report with its entries. One report per
// (project, date) is enforced by a unique index.
func (r *Repository) Create(ctx context.Context, input CreateReportInput) (*DailyReport, error) {
	var report *DailyReport
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO daily_reports (project_id, report_date, external_site, status, note, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, 'DRAFT', $4, $5, NOW(), NOW())
			RETURNING `+reportColumns,
			input.ProjectID, input.ReportDate, input.ExternalSite, input.Note, input.CreatedBy)
		var err error
		report, err = scanReport(row)
		if err != nil {
			return err
		}
		report.Entries, err = insertEntries(ctx, tx, report.ID, input.Entries)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("dailyreports: report exists for project %d on %s: %w",
				input.ProjectID, input.ReportDate.Format("2006-01-02"), httpx.ErrDuplicate)
		}
		return nil, fmt.Errorf("dailyreports: create: %w", err)
	}
	return report, nil
}

func insertEntries(ctx context.Context, tx pgx.Tx, reportID int64, entries []EntryInput) ([]Entry, error) {
	out := make([]Entry, 0, len(entries))
	for _, in := range entries {
		e := Entry{
			ReportID:       reportID,
			Category:       in.Category,
			EmployeeID:     in.EmployeeID,
			EmploymentType: in.EmploymentType,
			PartnerID:      in.PartnerID,
			ManDays:        in.ManDays,
			UnitPrice:      in.UnitPrice,
			Amount:         in.Amount,
			Description:    in.Description,
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO daily_report_entries (daily_report_id, category, employee_id, employment_type, partner_id, man_days, unit_price, amount, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			reportID, string(in.Category), in.EmployeeID, in.EmploymentType, in.PartnerID, in.ManDays, in.UnitPrice, in.Amount, in.Description,
		).Scan(&e.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Get loads a report with its entries.
func (r *Repository) Get(ctx context.Context, id int64) (*DailyReport, error) {
	report, err := scanReport(r.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM daily_reports WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("dailyreports: get: %w", err)
	}
	report.Entries, err = r.entries(ctx, id)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Repository) entries(ctx context.Context, reportID int64) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, daily_report_id, category, employee_id, employment_type, partner_id, man_days, unit_price, amount, description
		FROM daily_report_entries WHERE daily_report_id = $1 ORDER BY id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("dailyreports: entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var cat string
		if err := rows.Scan(&e.ID, &e.ReportID, &cat, &e.EmployeeID, &e.EmploymentType, &e.PartnerID, &e.ManDays, &e.UnitPrice, &e.Amount, &e.Description); err != nil {
			return nil, err
		}
		e.Category = budgets.Category(cat)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReplaceEntries swaps a report's entries and note, recomputes nothing:
// pricing happens in the service via Confirm or Revise.
func (r *Repository) ReplaceEntries(ctx context.Context, reportID int64, input UpdateReportInput) ([]Entry, error) {
	var out []Entry
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE daily_reports SET note = $2, updated_at = NOW() WHERE id = $1`, reportID, input.Note); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM daily_report_entries WHERE daily_report_id = $1`, reportID); err != nil {
			return err
		}
		var err error
		out, err = insertEntries(ctx, tx, reportID, input.Entries)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("dailyreports: replace entries: %w", err)
	}
	return out, nil
}

// Confirm stamps totals plus confirmed_by/confirmed_at on a draft report.
func (r *Repository) Confirm(ctx context.Context, id, actorID int64, totals Totals) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE daily_reports
		SET status = 'CONFIRMED', labor_cost = $3, material_cost = $4, outsourcing_cost = $5,
		    expense_cost = $6, transportation_cost = $7,
		    confirmed_by = $2, confirmed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'DRAFT'`,
		id, actorID, totals.LaborCost, totals.MaterialCost, totals.OutsourcingCost, totals.ExpenseCost, totals.TransportationCost)
	if err != nil {
		return fmt.Errorf("dailyreports: confirm: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dailyreports: not a draft: %w", httpx.ErrConflict)
	}
	return nil
}

// Revise swaps a confirmed report's entries and stamps the revision in one
// transaction, so a partial failure can never leave edited entries behind a
// CONFIRMED status.
func (r *Repository) Revise(ctx context.Context, id, actorID int64, input UpdateReportInput, totals Totals) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE daily_reports
			SET status = 'REVISED', note = $3, labor_cost = $4, material_cost = $5,
			    outsourcing_cost = $6, expense_cost = $7, transportation_cost = $8,
			    revised_by = $2, revised_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND status IN ('CONFIRMED', 'REVISED')`,
			id, actorID, input.Note, totals.LaborCost, totals.MaterialCost, totals.OutsourcingCost, totals.ExpenseCost, totals.TransportationCost)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("dailyreports: not confirmed: %w", httpx.ErrConflict)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM daily_report_entries WHERE daily_report_id = $1`, id); err != nil {
			return err
		}
		_, err = insertEntries(ctx, tx, id, input.Entries)
		return err
	})
	if err != nil {
		if errors.Is(err, httpx.ErrConflict) {
			return err
		}
		return fmt.Errorf("dailyreports: revise: %w", err)
	}
	return nil
}

// List returns a page of reports matching the filter plus the unpaged match
// count, entries omitted.
func (r *Repository) List(ctx context.Context, req ListReportsRequest) ([]DailyReport, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var from, to time.Time
	if req.From != nil {
		from = *req.From
	}
	if req.To != nil {
		to = *req.To
	}
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM daily_reports
		WHERE ($1 = 0 OR project_id = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3::date IS NULL OR report_date >= $3)
		  AND ($4::date IS NULL OR report_date <= $4)`,
		req.ProjectID, string(req.Status), nullableDate(from), nullableDate(to)).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("dailyreports: count: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+reportColumns+`
		FROM daily_reports
		WHERE ($1 = 0 OR project_id = $1)
		  AND ($2 = '' OR status = $2)
		  AND ($3::date IS NULL OR report_date >= $3)
		  AND ($4::date IS NULL OR report_date <= $4)
		ORDER BY report_date DESC, id DESC
		LIMIT $5 OFFSET $6`,
		req.ProjectID, string(req.Status), nullableDate(from), nullableDate(to), limit, req.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("dailyreports: list: %w", err)
	}
	defer rows.Close()

	var out []DailyReport
	for rows.Next() {
		d, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

// ListUnconfirmed returns draft reports, oldest first. Consumed by the
// internal API so the automation tool can chase missing confirmations.
func (r *Repository) ListUnconfirmed(ctx context.Context) ([]DailyReport, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reportColumns+`
		FROM daily_reports
		WHERE status = 'DRAFT'
		ORDER BY report_date, id`)
	if err != nil {
		return nil, fmt.Errorf("dailyreports: list unconfirmed: %w", err)
	}
	defer rows.Close()

	var out []DailyReport
	for rows.Next() {
		d, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
