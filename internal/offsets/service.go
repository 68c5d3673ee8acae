package offsets

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/genba-erp/genba-erp/internal/cashflow"
	"github.com/genba-erp/genba-erp/internal/masterdata/paymentterms"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
	"github.com/genba-erp/genba-erp/internal/webhooks"
)

// RepositoryPort defines data access methods for the offset ledger.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateOffsetInput) (*Offset, error)
	Get(ctx context.Context, id int64) (*Offset, error)
	UpdateAmounts(ctx context.Context, id int64, input UpdateOffsetInput) (*Offset, error)
	Confirm(ctx context.Context, id, actorID int64) (*Offset, error)
	List(ctx context.Context, req ListOffsetsRequest) ([]Offset, int, error)
}

// LedgerPort feeds the net payable of a confirmed period into the cash-flow
// ledger.
type LedgerPort interface {
	CreateEntry(ctx context.Context, input cashflow.CreateEntryInput) (*cashflow.Entry, error)
}

// Service handles offset ledger business logic.
type Service struct {
	logger    *slog.Logger
	repo      RepositoryPort
	ledger    LedgerPort
	auditor   shared.Auditor
	publisher webhooks.Publisher
	validate  *validator.Validate
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, ledger LedgerPort, auditor shared.Auditor, publisher webhooks.Publisher) *Service {
	return &Service{
		logger:    logger,
		repo:      repo,
		ledger:    ledger,
		auditor:   auditor,
		publisher: publisher,
		validate:  validator.New(),
	}
}

// CreateOffset opens a draft period for a partner. The carryover snapshot
// comes from the partner's current balance.
func (s *Service) CreateOffset(ctx context.Context, input CreateOffsetInput) (*Offset, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	if _, err := shared.ParseYearMonth(input.YearMonth); err != nil {
		return nil, fmt.Errorf("%v: %w", err, httpx.ErrValidation)
	}
	o, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "offset.create", o.ID, map[string]any{
		"partner_id": o.PartnerID,
		"year_month": o.YearMonth,
		"carryover":  o.Carryover,
	})
	return o, nil
}

// GetOffset returns a ledger row by id.
func (s *Service) GetOffset(ctx context.Context, id int64) (*Offset, error) {
	return s.repo.Get(ctx, id)
}

// UpdateOffset adjusts a draft's amounts.
func (s *Service) UpdateOffset(ctx context.Context, id int64, input UpdateOffsetInput) (*Offset, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	o, err := s.repo.UpdateAmounts(ctx, id, input)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "offset.update", id, map[string]any{
		"offset_amount":  o.OffsetAmount,
		"revenue_amount": o.RevenueAmount,
	})
	return o, nil
}

// ConfirmOffset finalizes a period: balance = carryover + offset_amount -
// revenue_amount, propagated to the partner atomically. Terminal. A negative
// balance is money still owed to the partner; it becomes an expected expense
// in the cash-flow ledger.
func (s *Service) ConfirmOffset(ctx context.Context, id int64) (*Offset, error) {
	o, err := s.repo.Confirm(ctx, id, shared.ActorID(ctx))
	if err != nil {
		return nil, err
	}
	if s.ledger != nil && o.Payable() > 0 {
		if _, err := s.ledger.CreateEntry(ctx, cashflow.CreateEntryInput{
			SourceType: cashflow.SourceExpense,
			SourceID:   o.ID,
		}); err != nil {
			s.logger.Error("cash-flow entry for confirmed offset failed",
				slog.Int64("offset_id", o.ID), slog.Any("error", err))
		}
	}
	s.audit(ctx, "offset.confirm", id, map[string]any{
		"partner_id": o.PartnerID,
		"year_month": o.YearMonth,
		"balance":    o.Balance,
	})
	s.publish(ctx, webhooks.NewEvent(webhooks.EventOffsetConfirmed, "Offset", id, map[string]any{
		"partner_id": o.PartnerID,
		"year_month": o.YearMonth,
		"balance":    o.Balance,
	}, nil))
	return o, nil
}

// Resolve lets the cash-flow ledger derive an expense entry from a confirmed
// period's net payable. Implements the ledger's source handler contract.
func (s *Service) Resolve(ctx context.Context, sourceID int64) (cashflow.SourceDocument, error) {
	o, err := s.repo.Get(ctx, sourceID)
	if err != nil {
		return cashflow.SourceDocument{}, err
	}
	if o.Status != StatusConfirmed {
		return cashflow.SourceDocument{}, fmt.Errorf("offset %d not confirmed: %w", sourceID, httpx.ErrConflict)
	}
	payable := o.Payable()
	if payable <= 0 {
		return cashflow.SourceDocument{}, fmt.Errorf("offset %d leaves nothing payable: %w", sourceID, httpx.ErrConflict)
	}
	ym, err := shared.ParseYearMonth(o.YearMonth)
	if err != nil {
		return cashflow.SourceDocument{}, err
	}
	return cashflow.SourceDocument{
		Direction:    cashflow.DirectionExpense,
		Amount:       payable,
		BaseDate:     ym.LastDay(),
		Description:  "相殺支払 " + o.YearMonth,
		TermableType: paymentterms.TermablePartner,
		TermableID:   o.PartnerID,
	}, nil
}

// ListOffsets returns a page of ledger rows matching the filter plus the
// unpaged match count.
func (s *Service) ListOffsets(ctx context.Context, req ListOffsetsRequest) ([]Offset, int, error) {
	if req.Status != "" && req.Status != StatusDraft && req.Status != StatusConfirmed {
		return nil, 0, fmt.Errorf("unknown status %q: %w", req.Status, httpx.ErrValidation)
	}
	return s.repo.List(ctx, req)
}

func (s *Service) audit(ctx context.Context, action string, id int64, meta map[string]any) {
	err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "offsets",
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
