package projects

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
	"github.com/genba-erp/genba-erp/internal/webhooks"
)

// RepositoryPort defines data access methods for projects and estimates.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateProjectInput) (*Project, error)
	Get(ctx context.Context, id int64) (*Project, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	UpdateGates(ctx context.Context, id int64, input UpdateGatesInput) (*Project, error)
	HasFinancialHistory(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, req ListProjectsRequest) ([]Project, int, error)
	Summarize(ctx context.Context) (*Summary, error)
	CreateEstimate(ctx context.Context, input CreateEstimateInput, number string, total int64) (*Estimate, error)
	ListEstimates(ctx context.Context, projectID int64) ([]Estimate, error)
	UpdateEstimateStatus(ctx context.Context, id int64, status EstimateStatus) error
	NextEstimateNumber(ctx context.Context) (string, error)
}

// Service handles project business logic.
type Service struct {
	logger    *slog.Logger
	repo      RepositoryPort
	auditor   shared.Auditor
	publisher webhooks.Publisher
	validate  *validator.Validate
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, auditor shared.Auditor, publisher webhooks.Publisher) *Service {
	return &Service{
		logger:    logger,
		repo:      repo,
		auditor:   auditor,
		publisher: publisher,
		validate:  validator.New(),
	}
}

// CreateProject registers a new project in DRAFT.
func (s *Service) CreateProject(ctx context.Context, input CreateProjectInput) (*Project, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	if input.StartsOn != nil && input.EndsOn != nil && input.EndsOn.Before(*input.StartsOn) {
		return nil, fmt.Errorf("ends_on precedes starts_on: %w", httpx.ErrValidation)
	}
	input.CreatedBy = shared.ActorID(ctx)

	project, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "project.create", project.ID, map[string]any{"code": project.Code})
	s.publish(ctx, webhooks.NewEvent(webhooks.EventProjectCreated, "Project", project.ID, map[string]any{
		"code":      project.Code,
		"name":      project.Name,
		"client_id": project.ClientID,
	}, nil))
	return project, nil
}

// GetProject returns a project by id.
func (s *Service) GetProject(ctx context.Context, id int64) (*Project, error) {
	return s.repo.Get(ctx, id)
}

// AdvanceStatus moves a project one step forward. Progress past PREPARING
// requires the full 四点チェック.
func (s *Service) AdvanceStatus(ctx context.Context, id int64, next Status) (*Project, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", next, httpx.ErrValidation)
	}
	project, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !project.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("cannot move %s -> %s: %w", project.Status, next, httpx.ErrConflict)
	}
	if statusRank[next] > statusRank[StatusPreparing] && !project.FourPointComplete() {
		return nil, fmt.Errorf("four-point check incomplete: %w", httpx.ErrConflict)
	}
	if err := s.repo.UpdateStatus(ctx, id, project.Status, next); err != nil {
		return nil, err
	}
	previous := project.Status
	project.Status = next

	s.audit(ctx, "project.status", id, map[string]any{"from": string(previous), "to": string(next)})
	s.publish(ctx, webhooks.NewEvent(webhooks.EventProjectStatusChanged, "Project", id, map[string]any{
		"code":   project.Code,
		"status": string(next),
	}, map[string]any{
		"status": []string{string(previous), string(next)},
	}))
	return project, nil
}

// UpdateGates sets the administrative gate flags.
func (s *Service) UpdateGates(ctx context.Context, id int64, input UpdateGatesInput) (*Project, error) {
	project, err := s.repo.UpdateGates(ctx, id, input)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "project.gates", id, map[string]any{"four_point_complete": project.FourPointComplete()})
	return project, nil
}

// DeleteProject removes a project unless financial records reference it.
func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	has, err := s.repo.HasFinancialHistory(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return fmt.Errorf("project has financial history: %w", httpx.ErrConflict)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, "project.delete", id, nil)
	return nil
}

// ListProjects returns a page of projects matching the filter plus the
// unpaged match count.
func (s *Service) ListProjects(ctx context.Context, req ListProjectsRequest) ([]Project, int, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, 0, fmt.Errorf("unknown status %q: %w", req.Status, httpx.ErrValidation)
	}
	return s.repo.List(ctx, req)
}

// Summarize aggregates project counts and contract value by status.
func (s *Service) Summarize(ctx context.Context) (*Summary, error) {
	return s.repo.Summarize(ctx)
}

// CreateEstimate prices a new estimate document for a project. Line amounts
// are derived from quantity and unit price, never trusted from the client.
func (s *Service) CreateEstimate(ctx context.Context, input CreateEstimateInput) (*Estimate, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	if _, err := s.repo.Get(ctx, input.ProjectID); err != nil {
		return nil, err
	}
	number := input.Number
	if number == "" {
		var err error
		number, err = s.repo.NextEstimateNumber(ctx)
		if err != nil {
			return nil, err
		}
	}
	var total int64
	for _, line := range input.Lines {
		total += int64(line.Quantity * float64(line.UnitPrice))
	}
	input.CreatedBy = shared.ActorID(ctx)

	est, err := s.repo.CreateEstimate(ctx, input, number, total)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "estimate.create", est.ID, map[string]any{"project_id": est.ProjectID, "total": est.Total})
	return est, nil
}

// ListEstimates returns a project's estimates.
func (s *Service) ListEstimates(ctx context.Context, projectID int64) ([]Estimate, error) {
	return s.repo.ListEstimates(ctx, projectID)
}

// SubmitEstimate marks a draft estimate as submitted to the customer.
func (s *Service) SubmitEstimate(ctx context.Context, id int64) error {
	return s.moveEstimate(ctx, id, EstimateSubmitted)
}

// AcceptEstimate marks an estimate as accepted by the customer.
func (s *Service) AcceptEstimate(ctx context.Context, id int64) error {
	return s.moveEstimate(ctx, id, EstimateAccepted)
}

func (s *Service) moveEstimate(ctx context.Context, id int64, status EstimateStatus) error {
	if err := s.repo.UpdateEstimateStatus(ctx, id, status); err != nil {
		return err
	}
	s.audit(ctx, "estimate.status", id, map[string]any{"status": string(status)})
	return nil
}

func (s *Service) audit(ctx context.Context, action string, id int64, meta map[string]any) {
	err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "projects",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) publish(ctx context.Context, evt webhooks.Event) {
	if err := s.publisher.PublishEvent(ctx, evt); err != nil {
		s.logger.Warn("webhook publish failed", slog.String("event", string(evt.EventType)), slog.Any("error", err))
	}
}
