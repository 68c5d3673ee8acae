package paymentterms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrNoTerm indicates the owner has no payment term configured. Callers that
// derive expected dates must surface this instead of guessing a cycle.
var ErrNoTerm = errors.New("payment term not configured")

// RepositoryPort defines data access methods for payment terms.
type RepositoryPort interface {
	Upsert(ctx context.Context, input CreatePaymentTermInput) (*PaymentTerm, error)
	FindForTermable(ctx context.Context, termableType TermableType, termableID int64) (*PaymentTerm, error)
	Delete(ctx context.Context, termableType TermableType, termableID int64) error
}

// Service handles payment term business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// SetTerm creates or replaces the term for an owner.
func (s *Service) SetTerm(ctx context.Context, input CreatePaymentTermInput) (*PaymentTerm, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, input)
}

// GetTerm returns the term for an owner.
func (s *Service) GetTerm(ctx context.Context, termableType TermableType, termableID int64) (*PaymentTerm, error) {
	if !termableType.Valid() {
		return nil, fmt.Errorf("paymentterms: unknown owner kind %q", termableType)
	}
	term, err := s.repo.FindForTermable(ctx, termableType, termableID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoTerm
		}
		return nil, err
	}
	return term, nil
}

// RemoveTerm deletes the term for an owner.
func (s *Service) RemoveTerm(ctx context.Context, termableType TermableType, termableID int64) error {
	if !termableType.Valid() {
		return fmt.Errorf("paymentterms: unknown owner kind %q", termableType)
	}
	return s.repo.Delete(ctx, termableType, termableID)
}

// ExpectedPaymentDate resolves the owner's term and derives the payment date
// for a document dated base.
func (s *Service) ExpectedPaymentDate(ctx context.Context, termableType TermableType, termableID int64, base time.Time) (time.Time, error) {
	term, err := s.GetTerm(ctx, termableType, termableID)
	if err != nil {
		return time.Time{}, err
	}
	return term.ExpectedPaymentDate(base), nil
}
