package paidleave

import (
	"context"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/genba-erp/genba-erp/internal/masterdata/employees"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
)

type fakeRepo struct {
	nextID   int64
	grants   map[int64]*Grant
	requests map[int64]*Request
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		grants:   make(map[int64]*Grant),
		requests: make(map[int64]*Request),
	}
}

func (f *fakeRepo) InsertGrant(_ context.Context, employeeID int64, grantDate, expiryDate time.Time, days decimal.Decimal) (*Grant, error) {
	for _, g := range f.grants {
		if g.EmployeeID == employeeID && g.GrantDate.Equal(grantDate) {
			return nil, httpx.ErrDuplicate
		}
	}
	f.nextID++
	g := &Grant{
		ID:          f.nextID,
		EmployeeID:  employeeID,
		GrantDate:   grantDate,
		ExpiryDate:  expiryDate,
		GrantedDays: days,
		UsedDays:    decimal.Zero,
		ExpiredDays: decimal.Zero,
	}
	f.grants[g.ID] = g
	cp := *g
	return &cp, nil
}

func (f *fakeRepo) GetGrant(_ context.Context, id int64) (*Grant, error) {
	g, ok := f.grants[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeRepo) ListGrants(_ context.Context, employeeID int64) ([]Grant, error) {
	var out []Grant
	for _, g := range f.grants {
		if g.EmployeeID == employeeID {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GrantDate.Before(out[j].GrantDate) })
	return out, nil
}

func (f *fakeRepo) InsertRequest(_ context.Context, input CreateRequestInput, consumed decimal.Decimal) (*Request, error) {
	for _, r := range f.requests {
		if r.EmployeeID == input.EmployeeID && r.LeaveDate.Equal(input.LeaveDate) {
			return nil, httpx.ErrDuplicate
		}
	}
	f.nextID++
	r := &Request{
		ID:           f.nextID,
		EmployeeID:   input.EmployeeID,
		LeaveDate:    input.LeaveDate,
		LeaveType:    input.LeaveType,
		ConsumedDays: consumed,
		Status:       RequestPending,
		Reason:       input.Reason,
	}
	f.requests[r.ID] = r
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) GetRequest(_ context.Context, id int64) (*Request, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) ListRequests(_ context.Context, employeeID int64, status RequestStatus) ([]Request, error) {
	var out []Request
	for _, r := range f.requests {
		if r.EmployeeID != employeeID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRepo) Approve(_ context.Context, requestID, actorID int64, asOf time.Time) (*Request, error) {
	req, ok := f.requests[requestID]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	if req.Status != RequestPending {
		return nil, httpx.ErrConflict
	}
	grants, _ := f.ListGrants(context.Background(), req.EmployeeID)
	for i := range grants {
		g := f.grants[grants[i].ID]
		if g.ExpiredAt(asOf) {
			continue
		}
		if g.RemainingDays().GreaterThanOrEqual(req.ConsumedDays) {
			g.UsedDays = g.UsedDays.Add(req.ConsumedDays)
			now := time.Now()
			req.Status = RequestApproved
			req.GrantID = &g.ID
			req.DecidedBy = &actorID
			req.DecidedAt = &now
			cp := *req
			return &cp, nil
		}
	}
	return nil, ErrInsufficientBalance
}

func (f *fakeRepo) Reject(_ context.Context, requestID, actorID int64) (*Request, error) {
	req, ok := f.requests[requestID]
	if !ok || req.Status != RequestPending {
		return nil, httpx.ErrConflict
	}
	req.Status = RequestRejected
	req.DecidedBy = &actorID
	cp := *req
	return &cp, nil
}

func (f *fakeRepo) Cancel(_ context.Context, requestID, actorID int64) (*Request, error) {
	req, ok := f.requests[requestID]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	if req.Status != RequestPending && req.Status != RequestApproved {
		return nil, httpx.ErrConflict
	}
	if req.Status == RequestApproved && req.GrantID != nil {
		g := f.grants[*req.GrantID]
		g.UsedDays = g.UsedDays.Sub(req.ConsumedDays)
	}
	req.Status = RequestCancelled
	req.DecidedBy = &actorID
	cp := *req
	return &cp, nil
}

func (f *fakeRepo) ExpireGrants(_ context.Context, asOf time.Time) (int64, error) {
	var n int64
	for _, g := range f.grants {
		if g.ExpiredAt(asOf) && g.RemainingDays().IsPositive() {
			g.ExpiredDays = g.ExpiredDays.Add(g.RemainingDays())
			n++
		}
	}
	return n, nil
}

type fakeEmployees struct {
	byID map[int64]*employees.Employee
}

func (f *fakeEmployees) GetEmployee(_ context.Context, id int64) (*employees.Employee, error) {
	e, ok := f.byID[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return e, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(repo *fakeRepo, emps *fakeEmployees) *Service {
	if emps == nil {
		emps = &fakeEmployees{byID: map[int64]*employees.Employee{}}
	}
	svc := NewService(slog.Default(), repo, emps, shared.NopAuditor{})
	svc.now = func() time.Time { return date(2026, 6, 1) }
	return svc
}

func requireDays(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(decimal.RequireFromString(want)), "want %s got %s", want, got)
}

func TestGrantIdentityHoldsThroughLifecycle(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	grant, err := svc.CreateGrant(ctx, CreateGrantInput{EmployeeID: 1, GrantDate: date(2026, 4, 1), GrantedDays: 11})
	require.NoError(t, err)
	require.Equal(t, date(2028, 4, 1), grant.ExpiryDate)
	requireDays(t, "11", grant.RemainingDays())

	req, err := svc.CreateRequest(ctx, CreateRequestInput{EmployeeID: 1, LeaveDate: date(2026, 6, 10), LeaveType: LeaveHalf})
	require.NoError(t, err)
	_, err = svc.ApproveRequest(ctx, req.ID)
	require.NoError(t, err)

	g, err := svc.repo.GetGrant(ctx, grant.ID)
	require.NoError(t, err)
	requireDays(t, "0.5", g.UsedDays)
	requireDays(t, "10.5", g.RemainingDays())
	// remaining = granted - used - expired
	require.True(t, g.RemainingDays().Equal(g.GrantedDays.Sub(g.UsedDays).Sub(g.ExpiredDays)))
}

func TestApproveThenCancelRestoresExactly(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	// Grant 11, already 2 used.
	grant, err := svc.CreateGrant(ctx, CreateGrantInput{EmployeeID: 1, GrantDate: date(2026, 4, 1), GrantedDays: 11})
	require.NoError(t, err)
	repo.grants[grant.ID].UsedDays = decimal.NewFromInt(2)

	req, err := svc.CreateRequest(ctx, CreateRequestInput{EmployeeID: 1, LeaveDate: date(2026, 6, 10), LeaveType: LeaveFull})
	require.NoError(t, err)

	approved, err := svc.ApproveRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, grant.ID, *approved.GrantID)
	g, _ := repo.GetGrant(ctx, grant.ID)
	requireDays(t, "3", g.UsedDays)
	requireDays(t, "8", g.RemainingDays())

	_, err = svc.CancelRequest(ctx, req.ID)
	require.NoError(t, err)
	g, _ = repo.GetGrant(ctx, grant.ID)
	requireDays(t, "2", g.UsedDays)
	requireDays(t, "9", g.RemainingDays())
}

func TestApprovalConsumesOldestGrantFirst(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	older, err := svc.CreateGrant(ctx, CreateGrantInput{EmployeeID: 1, GrantDate: date(2025, 4, 1), GrantedDays: 1})
	require.NoError(t, err)
	newer, err := svc.CreateGrant(ctx, CreateGrantInput{EmployeeID: 1, GrantDate: date(2026, 4, 1), GrantedDays: 11})
	require.NoError(t, err)

	req, err := svc.CreateRequest(ctx, CreateRequestInput{EmployeeID: 1, LeaveDate: date(2026, 6, 10), LeaveType: LeaveFull})
	require.NoError(t, err)
	approved, err := svc.ApproveRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, older.ID, *approved.GrantID)

	// The older grant is drained; the next request falls through to the newer.
	req2, err := svc.CreateRequest(ctx, CreateRequestInput{EmployeeID: 1, LeaveDate: date(2026, 6, 11), LeaveType: LeaveFull})
	require.NoError(t, err)
	approved2, err := svc.ApproveRequest(ctx, req2.ID)
	require.NoError(t, err)
	require.Equal(t, newer.ID, *approved2.GrantID)
}

func TestApprovalSkipsExpiredGrantsAndSmallRemainders(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	// Expired before the decision date.
	_, err := svc.CreateGrant(ctx, CreateGrantInput{EmployeeID: 1, GrantDate: date(2024, 4, 1), GrantedDays: 10})
	require.NoError(t, err)
	// Open but cannot cover a full day: days are never split across grants.
	half, err := svc.CreateGrant(ctx, CreateGrantInput{EmployeeID: 1, GrantDate: date(2025, 4, 1), GrantedDays: 0.5})
	require.NoError(t, err)

	req, err := svc.CreateRequest(ctx, CreateRequestInput{EmployeeID: 1, LeaveDate: date(2026, 6, 10), LeaveType: LeaveFull})
	require.NoError(t, err)
	_, err = svc.ApproveRequest(ctx, req.ID)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// A half day fits the half-day remainder.
	reqHalf, err := svc.CreateRequest(ctx, CreateRequestInput{EmployeeID: 1, LeaveDate: date(2026, 6, 11), LeaveType: LeaveHalf})
	require.NoError(t, err)
	approved, err := svc.ApproveRequest(ctx, reqHalf.ID)
	require.NoError(t, err)
	require.Equal(t, half.ID, *approved.GrantID)
}

func TestSweepExpiredMovesRemainderToExpired(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	g, err := svc.CreateGrant(ctx, CreateGrantInput{EmployeeID: 1, GrantDate: date(2024, 4, 1), GrantedDays: 10})
	require.NoError(t, err)
	repo.grants[g.ID].UsedDays = decimal.NewFromInt(4)

	n, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	swept, _ := repo.GetGrant(ctx, g.ID)
	requireDays(t, "6", swept.ExpiredDays)
	requireDays(t, "0", swept.RemainingDays())

	// Sweep is idempotent.
	n, err = svc.SweepExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestBalanceExcludesExpiredGrants(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.CreateGrant(ctx, CreateGrantInput{EmployeeID: 1, GrantDate: date(2024, 4, 1), GrantedDays: 10})
	require.NoError(t, err)
	_, err = svc.CreateGrant(ctx, CreateGrantInput{EmployeeID: 1, GrantDate: date(2026, 4, 1), GrantedDays: 12})
	require.NoError(t, err)

	balance, err := svc.GetBalance(ctx, 1)
	require.NoError(t, err)
	requireDays(t, "12", balance.Remaining)
	require.Len(t, balance.Grants, 1)
}

func TestGroupByFiscalYearBucketsAprilStart(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	// March 2026 belongs to fiscal 2025; April 2026 to fiscal 2026.
	_, err := svc.CreateGrant(ctx, CreateGrantInput{EmployeeID: 1, GrantDate: date(2026, 3, 31), GrantedDays: 10})
	require.NoError(t, err)
	_, err = svc.CreateGrant(ctx, CreateGrantInput{EmployeeID: 1, GrantDate: date(2026, 4, 1), GrantedDays: 11})
	require.NoError(t, err)

	groups, err := svc.GroupByFiscalYear(ctx, 1)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, 2025, groups[0].FiscalYear)
	requireDays(t, "10", groups[0].Granted)
	require.Equal(t, 2026, groups[1].FiscalYear)
	requireDays(t, "11", groups[1].Granted)
}

func TestStatutoryDaysSchedule(t *testing.T) {
	cases := []struct {
		years  float64
		weekly int
		want   int64
	}{
		{0.5, 5, 10},
		{1.5, 5, 11},
		{2.5, 5, 12},
		{3.5, 5, 14},
		{4.5, 5, 16},
		{5.5, 5, 18},
		{6.5, 5, 20},
		{10, 5, 20},
		{0.4, 5, 0},
		{0.5, 4, 7},
		{6.5, 4, 15},
		{0.5, 3, 5},
		{3.5, 2, 5},
		{6.5, 1, 3},
		{1.5, 0, 0},
	}
	for _, tc := range cases {
		got := StatutoryDays(tc.years, tc.weekly)
		require.True(t, got.Equal(decimal.NewFromInt(tc.want)),
			"years=%v weekly=%d: want %d got %s", tc.years, tc.weekly, tc.want, got)
	}
}

func TestGrantStatutoryUsesEmployeeTenure(t *testing.T) {
	repo := newFakeRepo()
	emps := &fakeEmployees{byID: map[int64]*employees.Employee{
		1: {ID: 1, HiredOn: date(2024, 10, 1), WeeklyDays: 5},
		2: {ID: 2, HiredOn: date(2026, 5, 1), WeeklyDays: 5},
	}}
	svc := newTestService(repo, emps)
	ctx := context.Background()

	// Hired 2024-10-01, granted at 1.5 years of service.
	grant, err := svc.GrantStatutory(ctx, 1, date(2026, 4, 1))
	require.NoError(t, err)
	requireDays(t, "11", grant.GrantedDays)
	require.Equal(t, date(2028, 4, 1), grant.ExpiryDate)

	// One month of tenure: not yet entitled.
	_, err = svc.GrantStatutory(ctx, 2, date(2026, 6, 1))
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDuplicateLeaveDateRejected(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)
	ctx := context.Background()

	_, err := svc.CreateRequest(ctx, CreateRequestInput{EmployeeID: 1, LeaveDate: date(2026, 6, 10), LeaveType: LeaveFull})
	require.NoError(t, err)
	_, err = svc.CreateRequest(ctx, CreateRequestInput{EmployeeID: 1, LeaveDate: date(2026, 6, 10), LeaveType: LeaveHalf})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}
