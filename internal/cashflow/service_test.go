package cashflow

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/genba-erp/genba-erp/internal/masterdata/paymentterms"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
)

type fakeRepo struct {
	nextID  int64
	entries map[int64]*Entry
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: make(map[int64]*Entry)}
}

func (f *fakeRepo) Insert(_ context.Context, e Entry) (*Entry, error) {
	f.nextID++
	e.ID = f.nextID
	e.Status = StatusExpected
	e.CreatedAt = time.Now()
	f.entries[e.ID] = &e
	cp := e
	return &cp, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (*Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id int64, from, to Status) error {
	e, ok := f.entries[id]
	if !ok || e.Status != from {
		return httpx.ErrConflict
	}
	e.Status = to
	return nil
}

func (f *fakeRepo) Complete(_ context.Context, id int64, input CompleteInput) (*Entry, error) {
	e, ok := f.entries[id]
	if !ok || e.Status != StatusConfirmed {
		return nil, httpx.ErrConflict
	}
	e.Status = StatusCompleted
	e.ActualDate = &input.ActualDate
	e.ActualAmount = &input.ActualAmount
	cp := *e
	return &cp, nil
}

func (f *fakeRepo) Override(_ context.Context, id int64, input OverrideInput) (*Entry, error) {
	e, ok := f.entries[id]
	if !ok || (e.Status != StatusExpected && e.Status != StatusConfirmed) {
		return nil, httpx.ErrConflict
	}
	e.ExpectedDate = input.ExpectedDate
	e.ExpectedAmount = input.ExpectedAmount
	e.ManualOverride = true
	e.OverrideReason = input.OverrideReason
	cp := *e
	return &cp, nil
}

func (f *fakeRepo) Adjust(_ context.Context, id int64, amount int64) (*Entry, error) {
	e, ok := f.entries[id]
	if !ok || (e.Status != StatusExpected && e.Status != StatusConfirmed) {
		return nil, httpx.ErrConflict
	}
	e.AdjustmentAmount += amount
	cp := *e
	return &cp, nil
}

func (f *fakeRepo) List(_ context.Context, _ ListEntriesRequest) ([]Entry, int, error) {
	var out []Entry
	for _, e := range f.entries {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (f *fakeRepo) OpenEntriesBetween(_ context.Context, from, to time.Time) ([]Entry, error) {
	var out []Entry
	for _, e := range f.entries {
		if e.Status == StatusCancelled {
			continue
		}
		if e.ExpectedDate.Before(from) || e.ExpectedDate.After(to) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

type fakeTerms struct {
	terms map[string]paymentterms.PaymentTerm
}

func (f *fakeTerms) ExpectedPaymentDate(_ context.Context, termableType paymentterms.TermableType, termableID int64, base time.Time) (time.Time, error) {
	term, ok := f.terms[string(termableType)]
	if !ok {
		return time.Time{}, paymentterms.ErrNoTerm
	}
	_ = termableID
	return term.ExpectedPaymentDate(base), nil
}

type staticSource struct {
	doc SourceDocument
	err error
}

func (s staticSource) Resolve(context.Context, int64) (SourceDocument, error) {
	return s.doc, s.err
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(repo *fakeRepo, terms TermPort) *Service {
	if terms == nil {
		terms = &fakeTerms{terms: map[string]paymentterms.PaymentTerm{}}
	}
	return NewService(slog.Default(), repo, terms, shared.NopAuditor{})
}

func TestCreateEntryDerivesExpectedDateFromTerm(t *testing.T) {
	repo := newFakeRepo()
	terms := &fakeTerms{terms: map[string]paymentterms.PaymentTerm{
		string(paymentterms.TermableClient): {
			// Close on the 20th, pay at the end of the following month.
			ClosingDay:         20,
			PaymentMonthOffset: 1,
			PaymentDay:         0,
		},
	}}
	svc := newTestService(repo, terms)
	svc.RegisterSource(SourceInvoice, staticSource{doc: SourceDocument{
		Direction:    DirectionIncome,
		Amount:       500_000,
		BaseDate:     date(2026, 1, 15),
		TermableType: paymentterms.TermableClient,
		TermableID:   3,
	}})

	entry, err := svc.CreateEntry(context.Background(), CreateEntryInput{SourceType: SourceInvoice, SourceID: 42})
	require.NoError(t, err)
	require.Equal(t, StatusExpected, entry.Status)
	require.Equal(t, date(2026, 2, 28), entry.ExpectedDate)
	require.Equal(t, int64(500_000), entry.ExpectedAmount)
	require.False(t, entry.ManualOverride)
}

func TestCreateEntryFallsBackWithoutTerm(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)
	svc.RegisterSource(SourceExpense, staticSource{doc: SourceDocument{
		Direction:    DirectionExpense,
		Amount:       30_000,
		BaseDate:     date(2026, 3, 10),
		TermableType: paymentterms.TermablePartner,
		TermableID:   7,
	}})

	entry, err := svc.CreateEntry(context.Background(), CreateEntryInput{SourceType: SourceExpense, SourceID: 1})
	require.NoError(t, err)
	require.Equal(t, date(2026, 3, 10), entry.ExpectedDate)
}

func TestCreateEntryUnregisteredSource(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)
	_, err := svc.CreateEntry(context.Background(), CreateEntryInput{SourceType: SourceInvoice, SourceID: 1})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func seedEntry(t *testing.T, svc *Service, direction Direction, amount int64, expected time.Time) *Entry {
	t.Helper()
	svc.RegisterSource(SourceExpense, staticSource{doc: SourceDocument{
		Direction: direction,
		Amount:    amount,
		BaseDate:  expected,
	}})
	e, err := svc.CreateEntry(context.Background(), CreateEntryInput{SourceType: SourceExpense, SourceID: 1})
	require.NoError(t, err)
	return e
}

func TestLifecycleTransitions(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)
	e := seedEntry(t, svc, DirectionExpense, 1_000, date(2026, 4, 1))
	ctx := context.Background()

	// Completing before confirming is rejected.
	_, err := svc.CompleteEntry(ctx, e.ID, CompleteInput{ActualDate: date(2026, 4, 2), ActualAmount: 1_000})
	require.ErrorIs(t, err, httpx.ErrConflict)

	_, err = svc.ConfirmEntry(ctx, e.ID)
	require.NoError(t, err)

	done, err := svc.CompleteEntry(ctx, e.ID, CompleteInput{ActualDate: date(2026, 4, 2), ActualAmount: 980})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)
	require.Equal(t, int64(980), *done.ActualAmount)

	// Completed entries are closed to further transitions.
	_, err = svc.CancelEntry(ctx, e.ID)
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestCancelFromExpected(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)
	e := seedEntry(t, svc, DirectionIncome, 5_000, date(2026, 4, 1))

	got, err := svc.CancelEntry(context.Background(), e.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)
}

func TestOverrideRequiresReason(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)
	e := seedEntry(t, svc, DirectionIncome, 5_000, date(2026, 4, 1))
	ctx := context.Background()

	_, err := svc.OverrideEntry(ctx, e.ID, OverrideInput{ExpectedDate: date(2026, 5, 1), ExpectedAmount: 4_000})
	require.Error(t, err)

	got, err := svc.OverrideEntry(ctx, e.ID, OverrideInput{
		ExpectedDate:   date(2026, 5, 1),
		ExpectedAmount: 4_000,
		OverrideReason: "customer requested split payment",
	})
	require.NoError(t, err)
	require.True(t, got.ManualOverride)
	require.Equal(t, date(2026, 5, 1), got.ExpectedDate)
}

func TestForecastNetsPerDayWithAdjustments(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	in := seedEntry(t, svc, DirectionIncome, 100_000, date(2026, 4, 10))
	svc.RegisterSource(SourceExpense, staticSource{doc: SourceDocument{
		Direction: DirectionExpense, Amount: 40_000, BaseDate: date(2026, 4, 10),
	}})
	_, err := svc.CreateEntry(ctx, CreateEntryInput{SourceType: SourceExpense, SourceID: 2})
	require.NoError(t, err)
	svc.RegisterSource(SourceExpense, staticSource{doc: SourceDocument{
		Direction: DirectionExpense, Amount: 25_000, BaseDate: date(2026, 4, 20),
	}})
	cancelled, err := svc.CreateEntry(ctx, CreateEntryInput{SourceType: SourceExpense, SourceID: 3})
	require.NoError(t, err)
	_, err = svc.CancelEntry(ctx, cancelled.ID)
	require.NoError(t, err)

	// Offset netting shaves 10,000 off the income expectation.
	_, err = svc.AdjustEntry(ctx, in.ID, AdjustInput{AdjustmentAmount: -10_000})
	require.NoError(t, err)

	forecast, err := svc.ForecastRange(ctx, date(2026, 4, 1), date(2026, 4, 30))
	require.NoError(t, err)
	require.Len(t, forecast.Buckets, 1) // cancelled entry excluded
	b := forecast.Buckets[0]
	require.Equal(t, date(2026, 4, 10), b.Date)
	require.Equal(t, int64(90_000), b.Income)
	require.Equal(t, int64(40_000), b.Expense)
	require.Equal(t, int64(50_000), b.Net)
	require.Equal(t, int64(50_000), forecast.Closing)
}

func TestForecastRejectsInvertedWindow(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)
	_, err := svc.ForecastRange(context.Background(), date(2026, 5, 1), date(2026, 4, 1))
	require.ErrorIs(t, err, httpx.ErrValidation)
}
