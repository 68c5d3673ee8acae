package paidleave

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/genba-erp/genba-erp/internal/masterdata/employees"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
)

// RepositoryPort defines data access methods for paid leave.
type RepositoryPort interface {
	InsertGrant(ctx context.Context, employeeID int64, grantDate, expiryDate time.Time, days decimal.Decimal) (*Grant, error)
	GetGrant(ctx context.Context, id int64) (*Grant, error)
	ListGrants(ctx context.Context, employeeID int64) ([]Grant, error)
	InsertRequest(ctx context.Context, input CreateRequestInput, consumed decimal.Decimal) (*Request, error)
	GetRequest(ctx context.Context, id int64) (*Request, error)
	ListRequests(ctx context.Context, employeeID int64, status RequestStatus) ([]Request, error)
	Approve(ctx context.Context, requestID, actorID int64, asOf time.Time) (*Request, error)
	Reject(ctx context.Context, requestID, actorID int64) (*Request, error)
	Cancel(ctx context.Context, requestID, actorID int64) (*Request, error)
	ExpireGrants(ctx context.Context, asOf time.Time) (int64, error)
}

// EmployeePort resolves employee master data for statutory grants.
// Implemented by the employees service.
type EmployeePort interface {
	GetEmployee(ctx context.Context, id int64) (*employees.Employee, error)
}

// Service handles paid leave business logic.
type Service struct {
	logger    *slog.Logger
	repo      RepositoryPort
	employees EmployeePort
	auditor   shared.Auditor
	validate  *validator.Validate
	now       func() time.Time
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, emps EmployeePort, auditor shared.Auditor) *Service {
	return &Service{
		logger:    logger,
		repo:      repo,
		employees: emps,
		auditor:   auditor,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// CreateGrant registers a manual grant.
func (s *Service) CreateGrant(ctx context.Context, input CreateGrantInput) (*Grant, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	days := decimal.NewFromFloat(input.GrantedDays)
	expiry := input.GrantDate.AddDate(ExpiryYears, 0, 0)
	grant, err := s.repo.InsertGrant(ctx, input.EmployeeID, input.GrantDate, expiry, days)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "leave.grant", grant.ID, map[string]any{
		"employee_id": grant.EmployeeID,
		"days":        days.String(),
	})
	return grant, nil
}

// GrantStatutory issues the scheduled grant for an employee as of the given
// date: days follow the tenure table, pro-rated for part-time weekly days.
func (s *Service) GrantStatutory(ctx context.Context, employeeID int64, asOf time.Time) (*Grant, error) {
	emp, err := s.employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	days := StatutoryDays(emp.YearsOfService(asOf), emp.WeeklyDays)
	if days.IsZero() {
		return nil, fmt.Errorf("employee %d not yet entitled: %w", employeeID, httpx.ErrValidation)
	}
	expiry := asOf.AddDate(ExpiryYears, 0, 0)
	grant, err := s.repo.InsertGrant(ctx, employeeID, asOf, expiry, days)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "leave.grant_statutory", grant.ID, map[string]any{
		"employee_id": employeeID,
		"days":        days.String(),
	})
	return grant, nil
}

// GetBalance sums the open balance over non-expired grants.
func (s *Service) GetBalance(ctx context.Context, employeeID int64) (*Balance, error) {
	grants, err := s.repo.ListGrants(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	balance := Balance{EmployeeID: employeeID, Remaining: decimal.Zero}
	for _, g := range grants {
		if g.ExpiredAt(now) {
			continue
		}
		balance.Remaining = balance.Remaining.Add(g.RemainingDays())
		balance.Grants = append(balance.Grants, g)
	}
	return &balance, nil
}

// GroupByFiscalYear buckets an employee's grants into April-start fiscal
// year cohorts.
func (s *Service) GroupByFiscalYear(ctx context.Context, employeeID int64) ([]FiscalYearGroup, error) {
	grants, err := s.repo.ListGrants(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	byYear := make(map[int]*FiscalYearGroup)
	for _, g := range grants {
		fy := shared.FiscalYearOf(g.GrantDate)
		group, ok := byYear[fy]
		if !ok {
			group = &FiscalYearGroup{
				FiscalYear: fy,
				Granted:    decimal.Zero,
				Used:       decimal.Zero,
				Expired:    decimal.Zero,
				Remaining:  decimal.Zero,
			}
			byYear[fy] = group
		}
		group.Granted = group.Granted.Add(g.GrantedDays)
		group.Used = group.Used.Add(g.UsedDays)
		group.Expired = group.Expired.Add(g.ExpiredDays)
		group.Remaining = group.Remaining.Add(g.RemainingDays())
	}
	out := make([]FiscalYearGroup, 0, len(byYear))
	for _, group := range byYear {
		out = append(out, *group)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiscalYear < out[j].FiscalYear })
	return out, nil
}

// CreateRequest files a pending leave request. Day cost is fixed by the
// leave type; balance is checked at approval, not here.
func (s *Service) CreateRequest(ctx context.Context, input CreateRequestInput) (*Request, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	consumed, ok := input.LeaveType.ConsumedDays()
	if !ok {
		return nil, fmt.Errorf("unknown leave type %q: %w", input.LeaveType, httpx.ErrValidation)
	}
	req, err := s.repo.InsertRequest(ctx, input, consumed)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "leave.request", req.ID, map[string]any{
		"employee_id": req.EmployeeID,
		"leave_date":  req.LeaveDate.Format("2006-01-02"),
		"days":        consumed.String(),
	})
	return req, nil
}

// ApproveRequest draws the days from the oldest non-expired grant with
// enough remaining. A request no single grant can cover is rejected with
// ErrInsufficientBalance.
func (s *Service) ApproveRequest(ctx context.Context, requestID int64) (*Request, error) {
	req, err := s.repo.Approve(ctx, requestID, shared.ActorID(ctx), s.now())
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "leave.approve", requestID, map[string]any{"grant_id": req.GrantID})
	return req, nil
}

// RejectRequest declines a pending request. No balance changes.
func (s *Service) RejectRequest(ctx context.Context, requestID int64) (*Request, error) {
	req, err := s.repo.Reject(ctx, requestID, shared.ActorID(ctx))
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "leave.reject", requestID, nil)
	return req, nil
}

// CancelRequest voids a request. Cancelling an approved request restores
// exactly its consumed days onto the grant it drew from.
func (s *Service) CancelRequest(ctx context.Context, requestID int64) (*Request, error) {
	req, err := s.repo.Cancel(ctx, requestID, shared.ActorID(ctx))
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "leave.cancel", requestID, map[string]any{"restored": req.ConsumedDays.String()})
	return req, nil
}

// ListRequests returns an employee's requests.
func (s *Service) ListRequests(ctx context.Context, employeeID int64, status RequestStatus) ([]Request, error) {
	return s.repo.ListRequests(ctx, employeeID, status)
}

// ListGrants returns an employee's grants, oldest first.
func (s *Service) ListGrants(ctx context.Context, employeeID int64) ([]Grant, error) {
	return s.repo.ListGrants(ctx, employeeID)
}

// SweepExpired moves remaining days to expired on grants past their expiry
// date. The worker runs this nightly.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireGrants(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired paid leave grants swept", slog.Int64("count", n))
	}
	return n, nil
}

func (s *Service) audit(ctx context.Context, action string, id int64, meta map[string]any) {
	err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "paid_leave",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
