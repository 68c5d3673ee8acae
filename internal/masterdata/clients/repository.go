package clients

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

// Repository provides PostgreSQL backed persistence for clients.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `id, code, name, name_normalized, contact_name, phone, email, address, is_active, created_at, updated_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.NameNormalized, &c.ContactName, &c.Phone, &c.Email, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts a client. Duplicate codes map to httpx.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, input CreateClientInput) (*Client, error) {
	query := `
		INSERT INTO clients (code, name, name_normalized, contact_name, phone, email, address, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW())
		RETURNING ` + clientColumns

	row := r.pool.QueryRow(ctx, query,
		input.Code,
		input.Name,
		shared.NormalizeName(input.Name),
		input.ContactName,
		input.Phone,
		input.Email,
		input.Address,
	)
	c, err := scanClient(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("clients: code %q: %w", input.Code, httpx.ErrDuplicate)
		}
		return nil, fmt.Errorf("clients: create: %w", err)
	}
	return c, nil
}

// Get loads a client by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("clients: get: %w", err)
	}
	return c, nil
}

// Update mutates client master fields.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateClientInput) (*Client, error) {
	query := `
		UPDATE clients
		SET name = $2,
		    name_normalized = $3,
		    contact_name = $4,
		    phone = $5,
		    email = $6,
		    address = $7,
		    is_active = COALESCE($8, is_active),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + clientColumns

	row := r.pool.QueryRow(ctx, query, id, input.Name, shared.NormalizeName(input.Name), input.ContactName, input.Phone, input.Email, input.Address, input.IsActive)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("clients: update: %w", err)
	}
	return c, nil
}

// List returns clients matching the filter.
func (r *Repository) List(ctx context.Context, req ListClientsRequest) ([]Client, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE ($1 = '' OR name_normalized LIKE '%' || $1 || '%' OR code = $2)
		  AND (NOT $3 OR is_active)
		ORDER BY code
		LIMIT $4 OFFSET $5`

	rows, err := r.pool.Query(ctx, query, shared.NormalizeName(req.Query), req.Query, req.ActiveOnly, limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("clients: list: %w", err)
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.NameNormalized, &c.ContactName, &c.Phone, &c.Email, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
