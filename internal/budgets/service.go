package budgets

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
)

// RepositoryPort defines data access methods for budgets.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateBudgetInput) (*Budget, error)
	GetByProject(ctx context.Context, projectID int64) (*Budget, error)
	ReplaceLines(ctx context.Context, budgetID int64, input UpdateBudgetInput) error
	Confirm(ctx context.Context, budgetID, actorID int64) error
	ActualsByCategory(ctx context.Context, projectID int64) (map[Category]int64, error)
}

// Service handles budget business logic.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	auditor  shared.Auditor
	validate *validator.Validate
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, auditor shared.Auditor) *Service {
	return &Service{logger: logger, repo: repo, auditor: auditor, validate: validator.New()}
}

// CreateBudget registers a draft budget for a project.
func (s *Service) CreateBudget(ctx context.Context, input CreateBudgetInput) (*Budget, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	if err := validateCategories(input.Lines); err != nil {
		return nil, err
	}
	input.CreatedBy = shared.ActorID(ctx)
	b, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "budget.create", b.ID, map[string]any{"project_id": b.ProjectID, "planned_total": b.PlannedTotal()})
	return b, nil
}

// GetBudget returns a project's budget.
func (s *Service) GetBudget(ctx context.Context, projectID int64) (*Budget, error) {
	return s.repo.GetByProject(ctx, projectID)
}

// UpdateBudget replaces a draft budget's lines and rates. Confirmed budgets
// are immutable.
func (s *Service) UpdateBudget(ctx context.Context, projectID int64, input UpdateBudgetInput) (*Budget, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	if err := validateCategories(input.Lines); err != nil {
		return nil, err
	}
	b, err := s.repo.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusDraft {
		return nil, fmt.Errorf("budget is confirmed: %w", httpx.ErrConflict)
	}
	if err := s.repo.ReplaceLines(ctx, b.ID, input); err != nil {
		return nil, err
	}
	s.audit(ctx, "budget.update", b.ID, map[string]any{"project_id": projectID})
	return s.repo.GetByProject(ctx, projectID)
}

// ConfirmBudget freezes the budget as the cost baseline for the project.
func (s *Service) ConfirmBudget(ctx context.Context, projectID int64) (*Budget, error) {
	b, err := s.repo.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Confirm(ctx, b.ID, shared.ActorID(ctx)); err != nil {
		return nil, err
	}
	s.audit(ctx, "budget.confirm", b.ID, map[string]any{"project_id": projectID})
	return s.repo.GetByProject(ctx, projectID)
}

// RollupProject builds the planned-versus-actual comparison. Plan and
// actuals load concurrently.
func (s *Service) RollupProject(ctx context.Context, projectID int64) (*Rollup, error) {
	var (
		budget  *Budget
		actuals map[Category]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		budget, err = s.repo.GetByProject(gctx, projectID)
		return err
	})
	g.Go(func() error {
		var err error
		actuals, err = s.repo.ActualsByCategory(gctx, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	planned := make(map[Category]int64)
	for _, l := range budget.Lines {
		planned[l.Category] += l.PlannedAmount
	}

	rollup := Rollup{ProjectID: projectID, BudgetStatus: budget.Status}
	for _, cat := range []Category{CategoryLabor, CategoryOutsourcing, CategoryMaterial, CategoryExpense, CategoryFuel} {
		p, a := planned[cat], actuals[cat]
		if p == 0 && a == 0 {
			continue
		}
		rollup.Categories = append(rollup.Categories, CategoryRollup{
			Category: cat,
			Planned:  p,
			Actual:   a,
			Variance: p - a,
		})
		rollup.PlannedTotal += p
		rollup.ActualTotal += a
	}
	rollup.Variance = rollup.PlannedTotal - rollup.ActualTotal
	return &rollup, nil
}

// LaborRates returns the day-rates from the project's budget. Daily report
// pricing calls this; a project without a budget prices labor at zero.
func (s *Service) LaborRates(ctx context.Context, projectID int64) (LaborRates, error) {
	b, err := s.repo.GetByProject(ctx, projectID)
	if err != nil {
		return LaborRates{}, err
	}
	return b.Rates, nil
}

func validateCategories(lines []BudgetLineInput) error {
	seen := make(map[Category]bool, len(lines))
	for _, l := range lines {
		if !ValidCategory(l.Category) {
			return fmt.Errorf("unknown category %q: %w", l.Category, httpx.ErrValidation)
		}
		if seen[l.Category] {
			return fmt.Errorf("duplicate category %q: %w", l.Category, httpx.ErrValidation)
		}
		seen[l.Category] = true
	}
	return nil
}

func (s *Service) audit(ctx context.Context, action string, id int64, meta map[string]any) {
	err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "budgets",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
