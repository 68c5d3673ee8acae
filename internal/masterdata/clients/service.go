package clients

import (
	"context"

	"github.com/go-playground/validator/v10"
)

// RepositoryPort defines data access methods for clients.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateClientInput) (*Client, error)
	Get(ctx context.Context, id int64) (*Client, error)
	Update(ctx context.Context, id int64, input UpdateClientInput) (*Client, error)
	List(ctx context.Context, req ListClientsRequest) ([]Client, error)
}

// Service handles client business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// CreateClient registers a new client.
func (s *Service) CreateClient(ctx context.Context, input CreateClientInput) (*Client, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, input)
}

// GetClient returns a client by id.
func (s *Service) GetClient(ctx context.Context, id int64) (*Client, error) {
	return s.repo.Get(ctx, id)
}

// UpdateClient mutates client master fields.
func (s *Service) UpdateClient(ctx context.Context, id int64, input UpdateClientInput) (*Client, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, input)
}

// ListClients returns clients matching the filter.
func (s *Service) ListClients(ctx context.Context, req ListClientsRequest) ([]Client, error) {
	return s.repo.List(ctx, req)
}
