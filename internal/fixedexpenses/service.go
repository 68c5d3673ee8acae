package fixedexpenses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/genba-erp/genba-erp/internal/cashflow"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
)

// RepositoryPort defines data access methods for schedules.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateScheduleInput) (*Schedule, error)
	Get(ctx context.Context, id int64) (*Schedule, error)
	Update(ctx context.Context, id int64, input UpdateScheduleInput) (*Schedule, error)
	List(ctx context.Context) ([]Schedule, error)
	ListActiveFor(ctx context.Context, yearMonth string) ([]Schedule, error)
	MarkGenerated(ctx context.Context, scheduleID int64, yearMonth string) error
}

// CashflowPort seeds derived entries into the cash-flow ledger.
type CashflowPort interface {
	CreateDerivedEntry(ctx context.Context, e cashflow.Entry) (*cashflow.Entry, error)
}

// Service handles schedule business logic.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	ledger   CashflowPort
	auditor  shared.Auditor
	validate *validator.Validate
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, ledger CashflowPort, auditor shared.Auditor) *Service {
	return &Service{logger: logger, repo: repo, ledger: ledger, auditor: auditor, validate: validator.New()}
}

// CreateSchedule registers a recurring expense.
func (s *Service) CreateSchedule(ctx context.Context, input CreateScheduleInput) (*Schedule, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	if err := validateRange(input.ActiveFrom, input.ActiveUntil); err != nil {
		return nil, err
	}
	sched, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "fixed_expense.create", sched.ID, map[string]any{"name": sched.Name, "amount": sched.Amount})
	return sched, nil
}

// GetSchedule returns a schedule by id.
func (s *Service) GetSchedule(ctx context.Context, id int64) (*Schedule, error) {
	return s.repo.Get(ctx, id)
}

// UpdateSchedule mutates a schedule. Already generated periods are not
// touched.
func (s *Service) UpdateSchedule(ctx context.Context, id int64, input UpdateScheduleInput) (*Schedule, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	if input.ActiveUntil != "" {
		if _, err := shared.ParseYearMonth(input.ActiveUntil); err != nil {
			return nil, fmt.Errorf("%v: %w", err, httpx.ErrValidation)
		}
	}
	sched, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "fixed_expense.update", id, nil)
	return sched, nil
}

// ListSchedules returns all schedules.
func (s *Service) ListSchedules(ctx context.Context) ([]Schedule, error) {
	return s.repo.List(ctx)
}

// GenerateMonth seeds one expense cash-flow entry per active schedule for
// the period. Re-running skips schedules already generated, so the operation
// is safe to repeat.
func (s *Service) GenerateMonth(ctx context.Context, yearMonth string) (*GenerateResult, error) {
	ym, err := shared.ParseYearMonth(yearMonth)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, httpx.ErrValidation)
	}
	schedules, err := s.repo.ListActiveFor(ctx, ym.String())
	if err != nil {
		return nil, err
	}

	result := GenerateResult{YearMonth: ym.String()}
	for _, sched := range schedules {
		if err := s.repo.MarkGenerated(ctx, sched.ID, ym.String()); err != nil {
			if errors.Is(err, httpx.ErrDuplicate) {
				result.Skipped++
				continue
			}
			return nil, err
		}
		entry, err := s.ledger.CreateDerivedEntry(ctx, cashflow.Entry{
			SourceType:     cashflow.SourceFixedExpense,
			SourceID:       sched.ID,
			Direction:      cashflow.DirectionExpense,
			Description:    sched.Name,
			ExpectedDate:   shared.ClampDayToMonth(ym, sched.PaymentDay),
			ExpectedAmount: sched.Amount,
		})
		if err != nil {
			return nil, err
		}
		result.EntryIDs = append(result.EntryIDs, entry.ID)
		result.Created++
	}
	s.audit(ctx, "fixed_expense.generate", 0, map[string]any{
		"year_month": ym.String(),
		"created":    result.Created,
		"skipped":    result.Skipped,
	})
	return &result, nil
}

func validateRange(from, until string) error {
	fromYM, err := shared.ParseYearMonth(from)
	if err != nil {
		return fmt.Errorf("%v: %w", err, httpx.ErrValidation)
	}
	if until == "" {
		return nil
	}
	untilYM, err := shared.ParseYearMonth(until)
	if err != nil {
		return fmt.Errorf("%v: %w", err, httpx.ErrValidation)
	}
	if untilYM.Before(fromYM) {
		return fmt.Errorf("active_until precedes active_from: %w", httpx.ErrValidation)
	}
	return nil
}

func (s *Service) audit(ctx context.Context, action string, id int64, meta map[string]any) {
	entityID := strconv.FormatInt(id, 10)
	err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "fixed_expense_schedules",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
