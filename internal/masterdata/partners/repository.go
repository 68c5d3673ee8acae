package partners

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
)

// Repository provides PostgreSQL backed persistence for partners.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const partnerColumns = `id, code, name, name_normalized, contact_name, phone, email, carryover_balance, is_active, created_at, updated_at`

func scanPartner(row pgx.Row) (*Partner, error) {
	var p Partner
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.NameNormalized, &p.ContactName, &p.Phone, &p.Email, &p.CarryoverBalance, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a partner. Duplicate codes map to httpx.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, input CreatePartnerInput) (*Partner, error) {
	query := `
		INSERT INTO partners (code, name, name_normalized, contact_name, phone, email, carryover_balance, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, TRUE, NOW(), NOW())
		RETURNING ` + partnerColumns

	row := r.pool.QueryRow(ctx, query,
		input.Code,
		input.Name,
		shared.NormalizeName(input.Name),
		input.ContactName,
		input.Phone,
		input.Email,
	)
	p, err := scanPartner(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("partners: code %q: %w", input.Code, httpx.ErrDuplicate)
		}
		return nil, fmt.Errorf("partners: create: %w", err)
	}
	return p, nil
}

// Get loads a partner by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Partner, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id = $1`, id)
	p, err := scanPartner(row)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("partners: get: %w", err)
	}
	return p, nil
}

// Update mutates partner master fields.
func (r *Repository) Update(ctx context.Context, id int64, input UpdatePartnerInput) (*Partner, error) {
	query := `
		UPDATE partners
		SET name = $2,
		    name_normalized = $3,
		    contact_name = $4,
		    phone = $5,
		    email = $6,
		    is_active = COALESCE($7, is_active),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + partnerColumns

	row := r.pool.QueryRow(ctx, query, id, input.Name, shared.NormalizeName(input.Name), input.ContactName, input.Phone, input.Email, input.IsActive)
	p, err := scanPartner(row)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("partners: update: %w", err)
	}
	return p, nil
}

// List returns partners matching the filter, newest first.
func (r *Repository) List(ctx context.Context, req ListPartnersRequest) ([]Partner, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT ` + partnerColumns + `
		FROM partners
		WHERE ($1 = '' OR name_normalized LIKE '%' || $1 || '%' OR code = $2)
		  AND (NOT $3 OR is_active)
		ORDER BY code
		LIMIT $4 OFFSET $5`

	rows, err := r.pool.Query(ctx, query, shared.NormalizeName(req.Query), req.Query, req.ActiveOnly, limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("partners: list: %w", err)
	}
	defer rows.Close()

	var out []Partner
	for rows.Next() {
		var p Partner
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.NameNormalized, &p.ContactName, &p.Phone, &p.Email, &p.CarryoverBalance, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
