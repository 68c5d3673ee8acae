package dailyreports

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/genba-erp/genba-erp/internal/budgets"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
	"github.com/genba-erp/genba-erp/internal/webhooks"
)

type fakeRepo struct {
	nextID  int64
	reports map[int64]*DailyReport
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{reports: make(map[int64]*DailyReport)}
}

func (f *fakeRepo) Create(_ context.Context, input CreateReportInput) (*DailyReport, error) {
	for _, d := range f.reports {
		if d.ProjectID == input.ProjectID && d.ReportDate.Equal(input.ReportDate) {
			return nil, httpx.ErrDuplicate
		}
	}
	f.nextID++
	d := &DailyReport{
		ID:         f.nextID,
		ProjectID:  input.ProjectID,
		ReportDate: input.ReportDate,
		Status:     StatusDraft,
		Note:       input.Note,
		CreatedBy:  input.CreatedBy,
		CreatedAt:  time.Now(),
	}
	for _, in := range input.Entries {
		f.nextID++
		d.Entries = append(d.Entries, entryFromInput(f.nextID, d.ID, in))
	}
	f.reports[d.ID] = d
	return clone(d), nil
}

func entryFromInput(id, reportID int64, in EntryInput) Entry {
	return Entry{
		ID:             id,
		ReportID:       reportID,
		Category:       in.Category,
		EmployeeID:     in.EmployeeID,
		EmploymentType: in.EmploymentType,
		PartnerID:      in.PartnerID,
		ManDays:        in.ManDays,
		UnitPrice:      in.UnitPrice,
		Amount:         in.Amount,
		Description:    in.Description,
	}
}

func (f *fakeRepo) Get(_ context.Context, id int64) (*DailyReport, error) {
	d, ok := f.reports[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return clone(d), nil
}

func (f *fakeRepo) ReplaceEntries(_ context.Context, reportID int64, input UpdateReportInput) ([]Entry, error) {
	d, ok := f.reports[reportID]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	d.Note = input.Note
	d.Entries = nil
	for _, in := range input.Entries {
		f.nextID++
		d.Entries = append(d.Entries, entryFromInput(f.nextID, reportID, in))
	}
	return append([]Entry(nil), d.Entries...), nil
}

func (f *fakeRepo) Confirm(_ context.Context, id, actorID int64, totals Totals) error {
	d, ok := f.reports[id]
	if !ok || d.Status != StatusDraft {
		return httpx.ErrConflict
	}
	now := time.Now()
	d.Status = StatusConfirmed
	d.Totals = totals
	d.ConfirmedBy = &actorID
	d.ConfirmedAt = &now
	return nil
}

func (f *fakeRepo) Revise(_ context.Context, id, actorID int64, input UpdateReportInput, totals Totals) error {
	d, ok := f.reports[id]
	if !ok || d.Status == StatusDraft {
		return httpx.ErrConflict
	}
	now := time.Now()
	d.Note = input.Note
	d.Entries = nil
	for _, in := range input.Entries {
		f.nextID++
		d.Entries = append(d.Entries, entryFromInput(f.nextID, id, in))
	}
	d.Status = StatusRevised
	d.Totals = totals
	d.RevisedBy = &actorID
	d.RevisedAt = &now
	return nil
}

func (f *fakeRepo) List(_ context.Context, req ListReportsRequest) ([]DailyReport, int, error) {
	var out []DailyReport
	for _, d := range f.reports {
		if req.ProjectID != 0 && d.ProjectID != req.ProjectID {
			continue
		}
		if req.Status != "" && d.Status != req.Status {
			continue
		}
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (f *fakeRepo) ListUnconfirmed(_ context.Context) ([]DailyReport, error) {
	var out []DailyReport
	for _, d := range f.reports {
		if d.Status == StatusDraft {
			out = append(out, *d)
		}
	}
	return out, nil
}

func clone(d *DailyReport) *DailyReport {
	cp := *d
	cp.Entries = append([]Entry(nil), d.Entries...)
	return &cp
}

type fakeRates struct {
	rates map[int64]budgets.LaborRates
	err   error
}

func (f *fakeRates) LaborRates(_ context.Context, projectID int64) (budgets.LaborRates, error) {
	if f.err != nil {
		return budgets.LaborRates{}, f.err
	}
	r, ok := f.rates[projectID]
	if !ok {
		return budgets.LaborRates{}, httpx.ErrNotFound
	}
	return r, nil
}

func newTestService(repo *fakeRepo, rates *fakeRates, pub webhooks.Publisher) *Service {
	if rates == nil {
		rates = &fakeRates{rates: map[int64]budgets.LaborRates{
			1: {Regular: 20_000, Temporary: 15_000, Outsourced: 18_000},
		}}
	}
	if pub == nil {
		pub = webhooks.NopPublisher{}
	}
	return NewService(slog.Default(), repo, rates, shared.NopAuditor{}, pub)
}

func ptr(v int64) *int64 { return &v }

func seedReport(t *testing.T, svc *Service) *DailyReport {
	t.Helper()
	d, err := svc.CreateReport(context.Background(), CreateReportInput{
		ProjectID:  1,
		ReportDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Entries: []EntryInput{
			{Category: budgets.CategoryLabor, EmployeeID: ptr(5), EmploymentType: "REGULAR", ManDays: 1.0},
			{Category: budgets.CategoryLabor, EmployeeID: ptr(6), EmploymentType: "TEMPORARY", ManDays: 0.5},
			{Category: budgets.CategoryOutsourcing, PartnerID: ptr(9), ManDays: 2, UnitPrice: 18_000},
			{Category: budgets.CategoryFuel, Amount: 4_500},
		},
	})
	require.NoError(t, err)
	return d
}

func TestConfirmPricesEntriesByEmploymentType(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil, nil)
	d := seedReport(t, svc)

	got, err := svc.ConfirmReport(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, got.Status)
	require.NotNil(t, got.ConfirmedAt)
	// 1.0 * 20000 + 0.5 * 15000
	require.Equal(t, int64(27_500), got.Totals.LaborCost)
	// 人工 billing: 2 man-days at the agreed unit price
	require.Equal(t, int64(36_000), got.Totals.OutsourcingCost)
	require.Equal(t, int64(4_500), got.Totals.TransportationCost)
	require.Equal(t, int64(68_000), got.Totals.Sum())
}

func TestConfirmTwiceConflicts(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil, nil)
	d := seedReport(t, svc)

	_, err := svc.ConfirmReport(context.Background(), d.ID)
	require.NoError(t, err)
	_, err = svc.ConfirmReport(context.Background(), d.ID)
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestConfirmWithoutBudgetPricesLaborAtZero(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeRates{rates: map[int64]budgets.LaborRates{}}, nil)
	d := seedReport(t, svc)

	got, err := svc.ConfirmReport(context.Background(), d.ID)
	require.NoError(t, err)
	require.Zero(t, got.Totals.LaborCost)
	require.Equal(t, int64(36_000), got.Totals.OutsourcingCost)
}

func TestEditAfterConfirmationMarksRevised(t *testing.T) {
	pub := &capturePublisher{}
	repo := newFakeRepo()
	svc := newTestService(repo, nil, pub)
	d := seedReport(t, svc)
	ctx := context.Background()

	_, err := svc.ConfirmReport(ctx, d.ID)
	require.NoError(t, err)

	got, err := svc.UpdateReport(ctx, d.ID, UpdateReportInput{
		Entries: []EntryInput{
			{Category: budgets.CategoryLabor, EmployeeID: ptr(5), EmploymentType: "REGULAR", ManDays: 2.0},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusRevised, got.Status)
	require.NotNil(t, got.RevisedAt)
	require.NotNil(t, got.RevisedBy)
	require.Equal(t, int64(40_000), got.Totals.LaborCost)

	var revised bool
	for _, evt := range pub.events {
		if evt.EventType == webhooks.EventDailyReportRevised {
			revised = true
		}
	}
	require.True(t, revised)
}

func TestEditAfterConfirmationFailedPricingChangesNothing(t *testing.T) {
	repo := newFakeRepo()
	rates := &fakeRates{rates: map[int64]budgets.LaborRates{
		1: {Regular: 20_000, Temporary: 15_000, Outsourced: 18_000},
	}}
	svc := newTestService(repo, rates, nil)
	d := seedReport(t, svc)
	ctx := context.Background()

	confirmed, err := svc.ConfirmReport(ctx, d.ID)
	require.NoError(t, err)

	rates.err = context.DeadlineExceeded
	_, err = svc.UpdateReport(ctx, d.ID, UpdateReportInput{
		Entries: []EntryInput{
			{Category: budgets.CategoryExpense, Amount: 999},
		},
	})
	require.Error(t, err)

	// The confirmed report must be untouched: same entries, same totals,
	// no revision stamp.
	got, err := svc.GetReport(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, got.Status)
	require.Nil(t, got.RevisedAt)
	require.Nil(t, got.RevisedBy)
	require.Equal(t, confirmed.Totals, got.Totals)
	require.Len(t, got.Entries, 4)
	for _, e := range got.Entries {
		require.NotEqual(t, int64(999), e.Amount)
	}
}

func TestFractionalManDaysRoundToNearestYen(t *testing.T) {
	repo := newFakeRepo()
	rates := &fakeRates{rates: map[int64]budgets.LaborRates{
		1: {Regular: 25_001},
	}}
	svc := newTestService(repo, rates, nil)

	d, err := svc.CreateReport(context.Background(), CreateReportInput{
		ProjectID:  1,
		ReportDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Entries: []EntryInput{
			{Category: budgets.CategoryLabor, EmployeeID: ptr(5), EmploymentType: "REGULAR", ManDays: 0.5},
		},
	})
	require.NoError(t, err)

	got, err := svc.ConfirmReport(context.Background(), d.ID)
	require.NoError(t, err)
	// 0.5 * 25001 = 12500.5, rounded half up
	require.Equal(t, int64(12_501), got.Totals.LaborCost)
}

func TestEditDraftKeepsDraftAndNoRevisionStamp(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil, nil)
	d := seedReport(t, svc)

	got, err := svc.UpdateReport(context.Background(), d.ID, UpdateReportInput{
		Entries: []EntryInput{
			{Category: budgets.CategoryExpense, Amount: 1_000},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, got.Status)
	require.Nil(t, got.RevisedAt)
	require.Nil(t, got.RevisedBy)
}

func TestDuplicateReportDateRejected(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil, nil)
	seedReport(t, svc)

	_, err := svc.CreateReport(context.Background(), CreateReportInput{
		ProjectID:  1,
		ReportDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestEntryValidation(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil, nil)
	base := CreateReportInput{ProjectID: 1, ReportDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}

	cases := []struct {
		name  string
		entry EntryInput
	}{
		{"attendance without employee", EntryInput{Category: budgets.CategoryLabor, EmploymentType: "REGULAR", ManDays: 1}},
		{"outsourcing without partner", EntryInput{Category: budgets.CategoryOutsourcing, ManDays: 1, UnitPrice: 100}},
		{"man_days without unit price", EntryInput{Category: budgets.CategoryOutsourcing, PartnerID: ptr(1), ManDays: 1}},
		{"expense without amount", EntryInput{Category: budgets.CategoryExpense}},
		{"unknown category", EntryInput{Category: "TRAVEL", Amount: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := base
			input.Entries = []EntryInput{tc.entry}
			_, err := svc.CreateReport(context.Background(), input)
			require.ErrorIs(t, err, httpx.ErrValidation)
		})
	}
}

type capturePublisher struct {
	events []webhooks.Event
}

func (c *capturePublisher) PublishEvent(_ context.Context, evt webhooks.Event) error {
	c.events = append(c.events, evt)
	return nil
}
