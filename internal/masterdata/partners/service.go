package partners

import (
	"context"

	"github.com/go-playground/validator/v10"
)

// RepositoryPort defines data access methods for partners.
type RepositoryPort interface {
	Create(ctx context.Context, input CreatePartnerInput) (*Partner, error)
	Get(ctx context.Context, id int64) (*Partner, error)
	Update(ctx context.Context, id int64, input UpdatePartnerInput) (*Partner, error)
	List(ctx context.Context, req ListPartnersRequest) ([]Partner, error)
}

// Service handles partner business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// CreatePartner registers a new partner with a zero carry-over balance.
func (s *Service) CreatePartner(ctx context.Context, input CreatePartnerInput) (*Partner, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, input)
}

// GetPartner returns a partner by id.
func (s *Service) GetPartner(ctx context.Context, id int64) (*Partner, error) {
	return s.repo.Get(ctx, id)
}

// UpdatePartner mutates master fields. The carry-over balance is owned by
// the offset ledger and cannot be edited here.
func (s *Service) UpdatePartner(ctx context.Context, id int64, input UpdatePartnerInput) (*Partner, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, input)
}

// ListPartners returns partners matching the filter.
func (s *Service) ListPartners(ctx context.Context, req ListPartnersRequest) ([]Partner, error) {
	return s.repo.List(ctx, req)
}
