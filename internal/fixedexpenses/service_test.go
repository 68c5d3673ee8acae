package fixedexpenses

import (
	"context"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/genba-erp/genba-erp/internal/cashflow"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
)

type fakeRepo struct {
	nextID    int64
	schedules map[int64]*Schedule
	generated map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		schedules: make(map[int64]*Schedule),
		generated: make(map[string]bool),
	}
}

func (f *fakeRepo) Create(_ context.Context, input CreateScheduleInput) (*Schedule, error) {
	f.nextID++
	s := &Schedule{
		ID:          f.nextID,
		Name:        input.Name,
		Amount:      input.Amount,
		PaymentDay:  input.PaymentDay,
		ActiveFrom:  input.ActiveFrom,
		ActiveUntil: input.ActiveUntil,
		CreatedAt:   time.Now(),
	}
	f.schedules[s.ID] = s
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (*Schedule, error) {
	s, ok := f.schedules[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, input UpdateScheduleInput) (*Schedule, error) {
	s, ok := f.schedules[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	s.Name = input.Name
	s.Amount = input.Amount
	s.PaymentDay = input.PaymentDay
	s.ActiveUntil = input.ActiveUntil
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) List(_ context.Context) ([]Schedule, error) {
	var out []Schedule
	for _, s := range f.schedules {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeRepo) ListActiveFor(_ context.Context, yearMonth string) ([]Schedule, error) {
	var out []Schedule
	for _, s := range f.schedules {
		if s.ActiveFrom > yearMonth {
			continue
		}
		if s.ActiveUntil != "" && s.ActiveUntil < yearMonth {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeRepo) MarkGenerated(_ context.Context, scheduleID int64, yearMonth string) error {
	key := yearMonth + "#" + strconv.FormatInt(scheduleID, 10)
	if f.generated[key] {
		return httpx.ErrDuplicate
	}
	f.generated[key] = true
	return nil
}

type fakeLedger struct {
	nextID  int64
	entries []cashflow.Entry
}

func (f *fakeLedger) CreateDerivedEntry(_ context.Context, e cashflow.Entry) (*cashflow.Entry, error) {
	f.nextID++
	e.ID = f.nextID
	e.Status = cashflow.StatusExpected
	f.entries = append(f.entries, e)
	cp := e
	return &cp, nil
}

func newTestService(repo *fakeRepo, ledger *fakeLedger) *Service {
	return NewService(slog.Default(), repo, ledger, shared.NopAuditor{})
}

func TestGenerateMonthSeedsLedger(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{}
	svc := newTestService(repo, ledger)
	ctx := context.Background()

	_, err := svc.CreateSchedule(ctx, CreateScheduleInput{
		Name: "office rent", Amount: 200_000, PaymentDay: 27, ActiveFrom: "2026-01",
	})
	require.NoError(t, err)
	_, err = svc.CreateSchedule(ctx, CreateScheduleInput{
		Name: "lease", Amount: 55_000, PaymentDay: 0, ActiveFrom: "2026-01", ActiveUntil: "2026-06",
	})
	require.NoError(t, err)

	result, err := svc.GenerateMonth(ctx, "2026-02")
	require.NoError(t, err)
	require.Equal(t, 2, result.Created)
	require.Zero(t, result.Skipped)
	require.Len(t, ledger.entries, 2)

	byName := make(map[string]cashflow.Entry)
	for _, e := range ledger.entries {
		byName[e.Description] = e
	}
	require.Equal(t, time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC), byName["office rent"].ExpectedDate)
	// payment_day 0 clamps to month end
	require.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), byName["lease"].ExpectedDate)
	require.Equal(t, cashflow.DirectionExpense, byName["lease"].Direction)
	require.Equal(t, cashflow.SourceFixedExpense, byName["lease"].SourceType)
}

func TestGenerateMonthIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{}
	svc := newTestService(repo, ledger)
	ctx := context.Background()

	_, err := svc.CreateSchedule(ctx, CreateScheduleInput{
		Name: "rent", Amount: 100_000, PaymentDay: 25, ActiveFrom: "2026-01",
	})
	require.NoError(t, err)

	first, err := svc.GenerateMonth(ctx, "2026-03")
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)

	second, err := svc.GenerateMonth(ctx, "2026-03")
	require.NoError(t, err)
	require.Zero(t, second.Created)
	require.Equal(t, 1, second.Skipped)
	require.Len(t, ledger.entries, 1)
}

func TestGenerateMonthRespectsActiveRange(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{}
	svc := newTestService(repo, ledger)
	ctx := context.Background()

	_, err := svc.CreateSchedule(ctx, CreateScheduleInput{
		Name: "short lease", Amount: 10_000, PaymentDay: 1, ActiveFrom: "2026-02", ActiveUntil: "2026-03",
	})
	require.NoError(t, err)

	for _, tc := range []struct {
		ym   string
		want int
	}{
		{"2026-01", 0},
		{"2026-02", 1},
		{"2026-03", 1},
		{"2026-04", 0},
	} {
		result, err := svc.GenerateMonth(ctx, tc.ym)
		require.NoError(t, err)
		require.Equal(t, tc.want, result.Created, tc.ym)
	}
}

func TestCreateScheduleValidatesRange(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeLedger{})
	_, err := svc.CreateSchedule(context.Background(), CreateScheduleInput{
		Name: "x", Amount: 1, ActiveFrom: "2026-05", ActiveUntil: "2026-01",
	})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.CreateSchedule(context.Background(), CreateScheduleInput{
		Name: "x", Amount: 1, ActiveFrom: "bad",
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestGenerateMonthRejectsMalformedPeriod(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeLedger{})
	_, err := svc.GenerateMonth(context.Background(), "2026/02")
	require.ErrorIs(t, err, httpx.ErrValidation)
}
