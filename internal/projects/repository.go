package projects

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for projects.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const projectColumns = `id, code, name, client_id, site_address, status, has_contract, has_order, has_payment_terms, has_customer_approval, contract_amount, starts_on, ends_on, created_by, created_at, updated_at`

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	var status string
	var startsOn, endsOn pgtype.Date
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.ClientID, &p.SiteAddress, &status,
		&p.HasContract, &p.HasOrder, &p.HasPaymentTerms, &p.HasCustomerApproval,
		&p.ContractAmount, &startsOn, &endsOn, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	p.Status = Status(status)
	if startsOn.Valid {
		t := startsOn.Time
		p.StartsOn = &t
	}
	if endsOn.Valid {
		t := endsOn.Time
		p.EndsOn = &t
	}
	return &p, nil
}

// Create inserts a project in DRAFT status.
func (r *Repository) Create(ctx context.Context, input CreateProjectInput) (*Project, error) {
	query := `
		INSERT INTO projects (code, name, client_id, site_address, status, contract_amount, starts_on, ends_on, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'DRAFT', $5, $6, $7, $8, NOW(), NOW())
		RETURNING ` + projectColumns

	row := r.pool.QueryRow(ctx, query, input.Code, input.Name, input.ClientID, input.SiteAddress, input.ContractAmount, input.StartsOn, input.EndsOn, input.CreatedBy)
	p, err := scanProject(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("projects: code %q: %w", input.Code, httpx.ErrDuplicate)
		}
		return nil, fmt.Errorf("projects: create: %w", err)
	}
	return p, nil
}

// Get loads a project by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Project, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("projects: get: %w", err)
	}
	return p, nil
}

// UpdateStatus moves a project to the next status. The caller has already
// validated the transition; the WHERE clause guards against lost updates.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE projects SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("projects: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("projects: status moved concurrently: %w", httpx.ErrConflict)
	}
	return nil
}

// UpdateGates sets the administrative gate flags.
func (r *Repository) UpdateGates(ctx context.Context, id int64, input UpdateGatesInput) (*Project, error) {
	query := `
		UPDATE projects
		SET has_contract = COALESCE($2, has_contract),
		    has_order = COALESCE($3, has_order),
		    has_payment_terms = COALESCE($4, has_payment_terms),
		    has_customer_approval = COALESCE($5, has_customer_approval),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + projectColumns

	row := r.pool.QueryRow(ctx, query, id, input.HasContract, input.HasOrder, input.HasPaymentTerms, input.HasCustomerApproval)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("projects: update gates: %w", err)
	}
	return p, nil
}

// HasFinancialHistory reports whether daily reports or invoices reference
// the project. Deletion is restricted while any exist.
func (r *Repository) HasFinancialHistory(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM daily_reports WHERE project_id = $1)
		    OR EXISTS (SELECT 1 FROM invoices WHERE project_id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("projects: history check: %w", err)
	}
	return exists, nil
}

// Delete removes a project without financial history.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("projects: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// List returns a page of projects matching the filter plus the unpaged
// match count.
func (r *Repository) List(ctx context.Context, req ListProjectsRequest) ([]Project, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM projects
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = 0 OR client_id = $2)`,
		string(req.Status), req.ClientID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("projects: count: %w", err)
	}

	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = 0 OR client_id = $2)
		ORDER BY id DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, string(req.Status), req.ClientID, limit, req.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("projects: list: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProjectRows(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func scanProjectRows(rows pgx.Rows) (*Project, error) {
	return scanProject(rows)
}

// Summarize aggregates counts and contract totals grouped by status.
func (r *Repository) Summarize(ctx context.Context) (*Summary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(contract_amount), 0),
		       COUNT(*) FILTER (WHERE has_contract AND has_order AND has_payment_terms AND has_customer_approval)
		FROM projects
		GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("projects: summarize: %w", err)
	}
	defer rows.Close()

	summary := Summary{ByStatus: make(map[string]int)}
	for rows.Next() {
		var status string
		var count, ready int
		var total int64
		if err := rows.Scan(&status, &count, &total, &ready); err != nil {
			return nil, err
		}
		summary.ByStatus[status] = count
		summary.TotalProjects += count
		summary.ContractTotal += total
		summary.FourPointReady += ready
	}
	return &summary, rows.Err()
}

// --- Estimates ---

// CreateEstimate inserts an estimate with its lines atomically.
func (r *Repository) CreateEstimate(ctx context.Context, input CreateEstimateInput, number string, total int64) (*Estimate, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("projects: begin estimate tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	est := Estimate{
		ProjectID: input.ProjectID,
		Number:    number,
		Status:    EstimateDraft,
		Total:     total,
		CreatedBy: input.CreatedBy,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO estimates (project_id, number, status, total, created_by, created_at, updated_at)
		VALUES ($1, $2, 'DRAFT', $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		input.ProjectID, number, total, input.CreatedBy,
	).Scan(&est.ID, &est.CreatedAt, &est.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("projects: insert estimate: %w", err)
	}

	for _, line := range input.Lines {
		amount := int64(line.Quantity * float64(line.UnitPrice))
		var l EstimateLine
		err = tx.QueryRow(ctx, `
			INSERT INTO estimate_lines (estimate_id, category, description, quantity, unit_price, amount)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			est.ID, line.Category, line.Description, line.Quantity, line.UnitPrice, amount,
		).Scan(&l.ID)
		if err != nil {
			return nil, fmt.Errorf("projects: insert estimate line: %w", err)
		}
		l.EstimateID = est.ID
		l.Category = line.Category
		l.Description = line.Description
		l.Quantity = line.Quantity
		l.UnitPrice = line.UnitPrice
		l.Amount = amount
		est.Lines = append(est.Lines, l)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("projects: commit estimate: %w", err)
	}
	return &est, nil
}

// ListEstimates returns estimates for a project, lines omitted.
func (r *Repository) ListEstimates(ctx context.Context, projectID int64) ([]Estimate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, number, status, total, created_by, created_at, updated_at
		FROM estimates WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("projects: list estimates: %w", err)
	}
	defer rows.Close()

	var out []Estimate
	for rows.Next() {
		var e Estimate
		var status string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Number, &status, &e.Total, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Status = EstimateStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateEstimateStatus moves an estimate between document states.
func (r *Repository) UpdateEstimateStatus(ctx context.Context, id int64, status EstimateStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE estimates SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("projects: update estimate status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// NextEstimateNumber produces a sequential document number.
func (r *Repository) NextEstimateNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('estimate_number_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("projects: estimate number: %w", err)
	}
	return fmt.Sprintf("EST-%06d", n), nil
}
