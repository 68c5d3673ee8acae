package employees

import (
	"context"

	"github.com/go-playground/validator/v10"
)

// RepositoryPort defines data access methods for employees.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateEmployeeInput) (*Employee, error)
	Get(ctx context.Context, id int64) (*Employee, error)
	Update(ctx context.Context, id int64, input UpdateEmployeeInput) (*Employee, error)
	List(ctx context.Context, req ListEmployeesRequest) ([]Employee, error)
}

// Service handles employee business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// CreateEmployee registers a new employee.
func (s *Service) CreateEmployee(ctx context.Context, input CreateEmployeeInput) (*Employee, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, input)
}

// GetEmployee returns an employee by id.
func (s *Service) GetEmployee(ctx context.Context, id int64) (*Employee, error) {
	return s.repo.Get(ctx, id)
}

// UpdateEmployee mutates employee master fields.
func (s *Service) UpdateEmployee(ctx context.Context, id int64, input UpdateEmployeeInput) (*Employee, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, input)
}

// ListEmployees returns employees matching the filter.
func (s *Service) ListEmployees(ctx context.Context, req ListEmployeesRequest) ([]Employee, error) {
	return s.repo.List(ctx, req)
}
