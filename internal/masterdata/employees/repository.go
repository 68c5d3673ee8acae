package employees

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
)

// Repository provides PostgreSQL backed persistence for employees.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const employeeColumns = `id, partner_id, name, name_normalized, employment_type, hired_on, weekly_days, is_active, created_at, updated_at`

func scanEmployee(row pgx.Row) (*Employee, error) {
	var e Employee
	var partnerID pgtype.Int8
	var employment string
	err := row.Scan(&e.ID, &partnerID, &e.Name, &e.NameNormalized, &employment, &e.HiredOn, &e.WeeklyDays, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	if partnerID.Valid {
		e.PartnerID = &partnerID.Int64
	}
	e.EmploymentType = EmploymentType(employment)
	return &e, nil
}

// Create inserts an employee.
func (r *Repository) Create(ctx context.Context, input CreateEmployeeInput) (*Employee, error) {
	var partnerID pgtype.Int8
	if input.PartnerID != nil && *input.PartnerID > 0 {
		partnerID = pgtype.Int8{Int64: *input.PartnerID, Valid: true}
	}
	query := `
		INSERT INTO employees (partner_id, name, name_normalized, employment_type, hired_on, weekly_days, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW())
		RETURNING ` + employeeColumns

	row := r.pool.QueryRow(ctx, query,
		partnerID,
		input.Name,
		shared.NormalizeName(input.Name),
		string(input.EmploymentType),
		input.HiredOn,
		input.WeeklyDays,
	)
	e, err := scanEmployee(row)
	if err != nil {
		return nil, fmt.Errorf("employees: create: %w", err)
	}
	return e, nil
}

// Get loads an employee by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	e, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("employees: get: %w", err)
	}
	return e, nil
}

// Update mutates employee master fields.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateEmployeeInput) (*Employee, error) {
	query := `
		UPDATE employees
		SET name = $2,
		    name_normalized = $3,
		    employment_type = $4,
		    weekly_days = $5,
		    is_active = COALESCE($6, is_active),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + employeeColumns

	row := r.pool.QueryRow(ctx, query, id, input.Name, shared.NormalizeName(input.Name), string(input.EmploymentType), input.WeeklyDays, input.IsActive)
	e, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("employees: update: %w", err)
	}
	return e, nil
}

// List returns employees matching the filter.
func (r *Repository) List(ctx context.Context, req ListEmployeesRequest) ([]Employee, error) {
	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE ($1 = 0 OR partner_id = $1)
		  AND (NOT $2 OR is_active)
		ORDER BY id
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, req.PartnerID, req.ActiveOnly, limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("employees: list: %w", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		var partnerID pgtype.Int8
		var employment string
		if err := rows.Scan(&e.ID, &partnerID, &e.Name, &e.NameNormalized, &employment, &e.HiredOn, &e.WeeklyDays, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if partnerID.Valid {
			e.PartnerID = &partnerID.Int64
		}
		e.EmploymentType = EmploymentType(employment)
		out = append(out, e)
	}
	return out, rows.Err()
}
