package cashflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/genba-erp/genba-erp/internal/masterdata/paymentterms"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
)

// SourceHandler resolves a source document into the facts an entry is
// derived from. One handler per SourceType, registered explicitly.
type SourceHandler interface {
	Resolve(ctx context.Context, sourceID int64) (SourceDocument, error)
}

// TermPort derives expected payment dates from configured payment terms.
// Implemented by the paymentterms service.
type TermPort interface {
	ExpectedPaymentDate(ctx context.Context, termableType paymentterms.TermableType, termableID int64, base time.Time) (time.Time, error)
}

// RepositoryPort defines data access methods for the cash-flow ledger.
type RepositoryPort interface {
	Insert(ctx context.Context, e Entry) (*Entry, error)
	Get(ctx context.Context, id int64) (*Entry, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	Complete(ctx context.Context, id int64, input CompleteInput) (*Entry, error)
	Override(ctx context.Context, id int64, input OverrideInput) (*Entry, error)
	Adjust(ctx context.Context, id int64, amount int64) (*Entry, error)
	List(ctx context.Context, req ListEntriesRequest) ([]Entry, int, error)
	OpenEntriesBetween(ctx context.Context, from, to time.Time) ([]Entry, error)
}

// Service handles cash-flow business logic.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	terms    TermPort
	auditor  shared.Auditor
	handlers map[SourceType]SourceHandler
	validate *validator.Validate
}

// NewService builds a Service instance with an empty source registry.
func NewService(logger *slog.Logger, repo RepositoryPort, terms TermPort, auditor shared.Auditor) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		terms:    terms,
		auditor:  auditor,
		handlers: make(map[SourceType]SourceHandler),
		validate: validator.New(),
	}
}

// RegisterSource wires a handler for a source type. Called at startup; not
// safe for concurrent use with CreateEntry.
func (s *Service) RegisterSource(t SourceType, h SourceHandler) {
	s.handlers[t] = h
}

// CreateEntry derives a new expected entry from a source document. The
// expected date is computed once here and never re-forecast.
func (s *Service) CreateEntry(ctx context.Context, input CreateEntryInput) (*Entry, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	handler, ok := s.handlers[input.SourceType]
	if !ok {
		return nil, fmt.Errorf("no handler for source type %q: %w", input.SourceType, httpx.ErrValidation)
	}
	doc, err := handler.Resolve(ctx, input.SourceID)
	if err != nil {
		return nil, err
	}
	if !doc.Direction.Valid() {
		return nil, fmt.Errorf("source resolved invalid direction %q: %w", doc.Direction, httpx.ErrValidation)
	}

	expectedDate := doc.BaseDate
	if doc.TermableID != 0 {
		expectedDate, err = s.terms.ExpectedPaymentDate(ctx, doc.TermableType, doc.TermableID, doc.BaseDate)
		if err != nil {
			if !errors.Is(err, paymentterms.ErrNoTerm) {
				return nil, err
			}
			// No term configured: fall back to the document date.
			expectedDate = doc.BaseDate
		}
	}

	entry, err := s.repo.Insert(ctx, Entry{
		SourceType:     input.SourceType,
		SourceID:       input.SourceID,
		Direction:      doc.Direction,
		Description:    doc.Description,
		ExpectedDate:   expectedDate,
		ExpectedAmount: doc.Amount,
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "cashflow.create", entry.ID, map[string]any{
		"source_type":     string(entry.SourceType),
		"source_id":       entry.SourceID,
		"expected_amount": entry.ExpectedAmount,
	})
	return entry, nil
}

// CreateDerivedEntry inserts an entry whose expectation the caller already
// derived. Fixed-expense generation uses this: the schedule dictates the
// date, so the source registry has nothing to resolve.
func (s *Service) CreateDerivedEntry(ctx context.Context, e Entry) (*Entry, error) {
	if !e.Direction.Valid() {
		return nil, fmt.Errorf("invalid direction %q: %w", e.Direction, httpx.ErrValidation)
	}
	if e.ExpectedDate.IsZero() {
		return nil, fmt.Errorf("expected date required: %w", httpx.ErrValidation)
	}
	entry, err := s.repo.Insert(ctx, e)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "cashflow.create", entry.ID, map[string]any{
		"source_type":     string(entry.SourceType),
		"source_id":       entry.SourceID,
		"expected_amount": entry.ExpectedAmount,
	})
	return entry, nil
}

// GetEntry returns an entry by id.
func (s *Service) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	return s.repo.Get(ctx, id)
}

// ConfirmEntry acknowledges the expectation.
func (s *Service) ConfirmEntry(ctx context.Context, id int64) (*Entry, error) {
	return s.transition(ctx, id, StatusConfirmed)
}

// CancelEntry voids an open entry.
func (s *Service) CancelEntry(ctx context.Context, id int64) (*Entry, error) {
	return s.transition(ctx, id, StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id int64, next Status) (*Entry, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entry.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("cannot move %s -> %s: %w", entry.Status, next, httpx.ErrConflict)
	}
	if err := s.repo.UpdateStatus(ctx, id, entry.Status, next); err != nil {
		return nil, err
	}
	s.audit(ctx, "cashflow."+string(next), id, nil)
	entry.Status = next
	return entry, nil
}

// CompleteEntry reconciles a confirmed entry against observed movement.
// Actual date and amount are mandatory.
func (s *Service) CompleteEntry(ctx context.Context, id int64, input CompleteInput) (*Entry, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entry.Status.CanTransitionTo(StatusCompleted) {
		return nil, fmt.Errorf("cannot complete %s entry: %w", entry.Status, httpx.ErrConflict)
	}
	completed, err := s.repo.Complete(ctx, id, input)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "cashflow.complete", id, map[string]any{
		"actual_date":   input.ActualDate.Format("2006-01-02"),
		"actual_amount": input.ActualAmount,
	})
	return completed, nil
}

// OverrideEntry hand-adjusts a computed expectation. A reason is required;
// the entry is flagged so reports can distinguish derived from adjusted.
func (s *Service) OverrideEntry(ctx context.Context, id int64, input OverrideInput) (*Entry, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	entry, err := s.repo.Override(ctx, id, input)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "cashflow.override", id, map[string]any{"reason": input.OverrideReason})
	return entry, nil
}

// AdjustEntry records offset netting effects against an open entry.
func (s *Service) AdjustEntry(ctx context.Context, id int64, input AdjustInput) (*Entry, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	entry, err := s.repo.Adjust(ctx, id, input.AdjustmentAmount)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "cashflow.adjust", id, map[string]any{"adjustment": input.AdjustmentAmount, "note": input.Note})
	return entry, nil
}

// ListEntries returns a page of ledger rows matching the filter plus the
// unpaged match count.
func (s *Service) ListEntries(ctx context.Context, req ListEntriesRequest) ([]Entry, int, error) {
	return s.repo.List(ctx, req)
}

// ForecastRange nets open entries per day over the window. Adjustment
// amounts shift the effective expectation.
func (s *Service) ForecastRange(ctx context.Context, from, to time.Time) (*Forecast, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("window end precedes start: %w", httpx.ErrValidation)
	}
	entries, err := s.repo.OpenEntriesBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]*ForecastBucket)
	var order []time.Time
	for _, e := range entries {
		day := e.ExpectedDate.Truncate(24 * time.Hour)
		b, ok := byDay[day]
		if !ok {
			b = &ForecastBucket{Date: day}
			byDay[day] = b
			order = append(order, day)
		}
		amount := e.ExpectedAmount + e.AdjustmentAmount
		if e.Direction == DirectionIncome {
			b.Income += amount
		} else {
			b.Expense += amount
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })

	forecast := Forecast{From: from, To: to}
	var running int64
	for _, day := range order {
		b := byDay[day]
		b.Net = b.Income - b.Expense
		running += b.Net
		b.Running = running
		forecast.Buckets = append(forecast.Buckets, *b)
	}
	forecast.Closing = running
	return &forecast, nil
}

func (s *Service) audit(ctx context.Context, action string, id int64, meta map[string]any) {
	err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "cash_flow_entries",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
