package paymentterms

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for payment terms.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ErrNotFound indicates no payment term for the owner.
var ErrNotFound = errors.New("paymentterms: not found")

// Upsert stores the term for an owner, replacing any previous one. One
// active term per (termable_type, termable_id).
func (r *Repository) Upsert(ctx context.Context, input CreatePaymentTermInput) (*PaymentTerm, error) {
	query := `
		INSERT INTO payment_terms (termable_type, termable_id, closing_day, payment_month_offset, payment_day, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (termable_type, termable_id) DO UPDATE
		SET closing_day = EXCLUDED.closing_day,
		    payment_month_offset = EXCLUDED.payment_month_offset,
		    payment_day = EXCLUDED.payment_day,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at`

	term := PaymentTerm{
		TermableType:       input.TermableType,
		TermableID:         input.TermableID,
		ClosingDay:         input.ClosingDay,
		PaymentMonthOffset: input.PaymentMonthOffset,
		PaymentDay:         input.PaymentDay,
	}
	err := r.pool.QueryRow(ctx, query,
		string(input.TermableType),
		input.TermableID,
		input.ClosingDay,
		input.PaymentMonthOffset,
		input.PaymentDay,
	).Scan(&term.ID, &term.CreatedAt, &term.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("paymentterms: upsert: %w", err)
	}
	return &term, nil
}

// FindForTermable loads the active term for an owner.
func (r *Repository) FindForTermable(ctx context.Context, termableType TermableType, termableID int64) (*PaymentTerm, error) {
	query := `
		SELECT id, termable_type, termable_id, closing_day, payment_month_offset, payment_day, created_at, updated_at
		FROM payment_terms
		WHERE termable_type = $1 AND termable_id = $2`

	var term PaymentTerm
	var ownerType string
	err := r.pool.QueryRow(ctx, query, string(termableType), termableID).Scan(
		&term.ID,
		&ownerType,
		&term.TermableID,
		&term.ClosingDay,
		&term.PaymentMonthOffset,
		&term.PaymentDay,
		&term.CreatedAt,
		&term.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("paymentterms: find: %w", err)
	}
	term.TermableType = TermableType(ownerType)
	return &term, nil
}

// Delete removes the term for an owner.
func (r *Repository) Delete(ctx context.Context, termableType TermableType, termableID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payment_terms WHERE termable_type = $1 AND termable_id = $2`, string(termableType), termableID)
	if err != nil {
		return fmt.Errorf("paymentterms: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
