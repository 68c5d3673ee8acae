package dailyreports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/genba-erp/genba-erp/internal/budgets"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
	"github.com/genba-erp/genba-erp/internal/webhooks"
)

// RepositoryPort defines data access methods for daily reports.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateReportInput) (*DailyReport, error)
	Get(ctx context.Context, id int64) (*DailyReport, error)
	ReplaceEntries(ctx context.Context, reportID int64, input UpdateReportInput) ([]Entry, error)
	Confirm(ctx context.Context, id, actorID int64, totals Totals) error
	Revise(ctx context.Context, id, actorID int64, input UpdateReportInput, totals Totals) error
	List(ctx context.Context, req ListReportsRequest) ([]DailyReport, int, error)
	ListUnconfirmed(ctx context.Context) ([]DailyReport, error)
}

// RatesPort supplies the owning project's labor day-rates. Implemented by
// the budgets service.
type RatesPort interface {
	LaborRates(ctx context.Context, projectID int64) (budgets.LaborRates, error)
}

// Service handles daily report business logic.
type Service struct {
	logger    *slog.Logger
	repo      RepositoryPort
	rates     RatesPort
	auditor   shared.Auditor
	publisher webhooks.Publisher
	validate  *validator.Validate
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, rates RatesPort, auditor shared.Auditor, publisher webhooks.Publisher) *Service {
	return &Service{
		logger:    logger,
		repo:      repo,
		rates:     rates,
		auditor:   auditor,
		publisher: publisher,
		validate:  validator.New(),
	}
}

// CreateReport registers a draft report.
func (s *Service) CreateReport(ctx context.Context, input CreateReportInput) (*DailyReport, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	if err := validateEntries(input.Entries); err != nil {
		return nil, err
	}
	input.CreatedBy = shared.ActorID(ctx)
	report, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "daily_report.create", report.ID, map[string]any{
		"project_id":  report.ProjectID,
		"report_date": report.ReportDate.Format("2006-01-02"),
	})
	return report, nil
}

// GetReport returns a report with its entries.
func (s *Service) GetReport(ctx context.Context, id int64) (*DailyReport, error) {
	return s.repo.Get(ctx, id)
}

// UpdateReport replaces a report's entries. Editing a draft keeps it a
// draft; editing after confirmation moves the report to REVISED, stamps
// revised_by/revised_at and re-prices the totals.
func (s *Service) UpdateReport(ctx context.Context, id int64, input UpdateReportInput) (*DailyReport, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	if err := validateEntries(input.Entries); err != nil {
		return nil, err
	}
	report, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if report.Status == StatusDraft {
		if _, err := s.repo.ReplaceEntries(ctx, id, input); err != nil {
			return nil, err
		}
		s.audit(ctx, "daily_report.update", id, nil)
		return s.repo.Get(ctx, id)
	}

	// Price first: a confirmed report's rows are only touched once the new
	// totals are known, and Revise swaps entries and stamps the revision in
	// one transaction.
	totals, err := s.priceEntries(ctx, report.ProjectID, pricingEntries(input.Entries))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Revise(ctx, id, shared.ActorID(ctx), input, totals); err != nil {
		return nil, err
	}
	s.audit(ctx, "daily_report.revise", id, map[string]any{"total": totals.Sum()})
	s.publish(ctx, webhooks.NewEvent(webhooks.EventDailyReportRevised, "DailyReport", id, map[string]any{
		"project_id": report.ProjectID,
		"total":      totals.Sum(),
	}, map[string]any{
		"status": []string{string(report.Status), string(StatusRevised)},
	}))
	return s.repo.Get(ctx, id)
}

// pricingEntries materializes input lines so they can be priced before any
// row is written.
func pricingEntries(in []EntryInput) []Entry {
	out := make([]Entry, 0, len(in))
	for _, e := range in {
		out = append(out, Entry{
			Category:       e.Category,
			EmployeeID:     e.EmployeeID,
			EmploymentType: e.EmploymentType,
			PartnerID:      e.PartnerID,
			ManDays:        e.ManDays,
			UnitPrice:      e.UnitPrice,
			Amount:         e.Amount,
		})
	}
	return out
}

// ConfirmReport prices the entries against the budget's day-rates, stamps
// the totals and moves the report to CONFIRMED.
func (s *Service) ConfirmReport(ctx context.Context, id int64) (*DailyReport, error) {
	report, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != StatusDraft {
		return nil, fmt.Errorf("report is %s: %w", report.Status, httpx.ErrConflict)
	}
	totals, err := s.priceEntries(ctx, report.ProjectID, report.Entries)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Confirm(ctx, id, shared.ActorID(ctx), totals); err != nil {
		return nil, err
	}
	s.audit(ctx, "daily_report.confirm", id, map[string]any{"total": totals.Sum()})
	s.publish(ctx, webhooks.NewEvent(webhooks.EventDailyReportConfirmed, "DailyReport", id, map[string]any{
		"project_id":  report.ProjectID,
		"report_date": report.ReportDate.Format("2006-01-02"),
		"total":       totals.Sum(),
	}, nil))
	return s.repo.Get(ctx, id)
}

// ListReports returns a page of reports matching the filter plus the
// unpaged match count.
func (s *Service) ListReports(ctx context.Context, req ListReportsRequest) ([]DailyReport, int, error) {
	if req.Status != "" && req.Status != StatusDraft && req.Status != StatusConfirmed && req.Status != StatusRevised {
		return nil, 0, fmt.Errorf("unknown status %q: %w", req.Status, httpx.ErrValidation)
	}
	return s.repo.List(ctx, req)
}

// ListUnconfirmed returns draft reports oldest first.
func (s *Service) ListUnconfirmed(ctx context.Context) ([]DailyReport, error) {
	return s.repo.ListUnconfirmed(ctx)
}

// priceEntries looks up the project's day-rates. A project without a budget
// prices labor at zero rather than failing the confirmation.
func (s *Service) priceEntries(ctx context.Context, projectID int64, entries []Entry) (Totals, error) {
	rates, err := s.rates.LaborRates(ctx, projectID)
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			return Totals{}, err
		}
		rates = budgets.LaborRates{}
	}
	return ComputeTotals(entries, rates), nil
}

func validateEntries(entries []EntryInput) error {
	for _, e := range entries {
		if !budgets.ValidCategory(e.Category) {
			return fmt.Errorf("unknown category %q: %w", e.Category, httpx.ErrValidation)
		}
		switch e.Category {
		case budgets.CategoryLabor:
			if e.EmployeeID == nil || e.EmploymentType == "" || e.ManDays <= 0 {
				return fmt.Errorf("attendance entry needs employee, employment type and man_days: %w", httpx.ErrValidation)
			}
		case budgets.CategoryOutsourcing:
			if e.PartnerID == nil {
				return fmt.Errorf("outsourcing entry needs a partner: %w", httpx.ErrValidation)
			}
			if e.ManDays > 0 && e.UnitPrice <= 0 {
				return fmt.Errorf("man_days billing needs a unit price: %w", httpx.ErrValidation)
			}
			if e.ManDays == 0 && e.Amount <= 0 {
				return fmt.Errorf("outsourcing entry needs man_days or a fixed amount: %w", httpx.ErrValidation)
			}
		default:
			if e.Amount <= 0 {
				return fmt.Errorf("%s entry needs an amount: %w", e.Category, httpx.ErrValidation)
			}
		}
	}
	return nil
}

func (s *Service) audit(ctx context.Context, action string, id int64, meta map[string]any) {
	err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "daily_reports",
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
