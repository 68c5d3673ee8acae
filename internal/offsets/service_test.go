package offsets

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/genba-erp/genba-erp/internal/cashflow"
	"github.com/genba-erp/genba-erp/internal/masterdata/paymentterms"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/shared"
	"github.com/genba-erp/genba-erp/internal/webhooks"
)

type fakeRepo struct {
	nextID   int64
	offsets  map[int64]*Offset
	balances map[int64]int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		offsets:  make(map[int64]*Offset),
		balances: make(map[int64]int64),
	}
}

func (f *fakeRepo) Create(_ context.Context, input CreateOffsetInput) (*Offset, error) {
	if _, ok := f.balances[input.PartnerID]; !ok {
		return nil, httpx.ErrNotFound
	}
	for _, o := range f.offsets {
		if o.PartnerID == input.PartnerID && o.YearMonth == input.YearMonth {
			return nil, httpx.ErrDuplicate
		}
	}
	f.nextID++
	o := &Offset{
		ID:            f.nextID,
		PartnerID:     input.PartnerID,
		YearMonth:     input.YearMonth,
		Carryover:     f.balances[input.PartnerID],
		OffsetAmount:  input.OffsetAmount,
		RevenueAmount: input.RevenueAmount,
		Status:        StatusDraft,
		CreatedAt:     time.Now(),
	}
	f.offsets[o.ID] = o
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (*Offset, error) {
	o, ok := f.offsets[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) UpdateAmounts(_ context.Context, id int64, input UpdateOffsetInput) (*Offset, error) {
	o, ok := f.offsets[id]
	if !ok || o.Status != StatusDraft {
		return nil, httpx.ErrConflict
	}
	o.OffsetAmount = input.OffsetAmount
	o.RevenueAmount = input.RevenueAmount
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) Confirm(_ context.Context, id, actorID int64) (*Offset, error) {
	o, ok := f.offsets[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	if o.Status != StatusDraft {
		return nil, httpx.ErrConflict
	}
	now := time.Now()
	o.Balance = o.ComputedBalance()
	o.Status = StatusConfirmed
	o.ConfirmedBy = &actorID
	o.ConfirmedAt = &now
	f.balances[o.PartnerID] = o.Balance
	cp := *o
	return &cp, nil
}

func (f *fakeRepo) List(_ context.Context, req ListOffsetsRequest) ([]Offset, int, error) {
	var out []Offset
	for _, o := range f.offsets {
		if req.PartnerID != 0 && o.PartnerID != req.PartnerID {
			continue
		}
		if req.Status != "" && o.Status != req.Status {
			continue
		}
		out = append(out, *o)
	}
	total := len(out)
	if req.Offset >= len(out) {
		out = nil
	} else if req.Offset > 0 {
		out = out[req.Offset:]
	}
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, total, nil
}

type fakeLedger struct {
	inputs []cashflow.CreateEntryInput
}

func (f *fakeLedger) CreateEntry(_ context.Context, input cashflow.CreateEntryInput) (*cashflow.Entry, error) {
	f.inputs = append(f.inputs, input)
	return &cashflow.Entry{ID: int64(len(f.inputs)), SourceType: input.SourceType, SourceID: input.SourceID}, nil
}

func newTestService(repo *fakeRepo, pub webhooks.Publisher) *Service {
	return newLedgerService(repo, &fakeLedger{}, pub)
}

func newLedgerService(repo *fakeRepo, ledger LedgerPort, pub webhooks.Publisher) *Service {
	if pub == nil {
		pub = webhooks.NopPublisher{}
	}
	return NewService(slog.Default(), repo, ledger, shared.NopAuditor{}, pub)
}

func TestConfirmAppliesNettingRule(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[1] = 10_000
	svc := newTestService(repo, nil)
	ctx := context.Background()

	o, err := svc.CreateOffset(ctx, CreateOffsetInput{
		PartnerID:     1,
		YearMonth:     "2026-01",
		OffsetAmount:  50_000,
		RevenueAmount: 45_000,
	})
	require.NoError(t, err)
	require.Equal(t, int64(10_000), o.Carryover)

	confirmed, err := svc.ConfirmOffset(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, int64(15_000), confirmed.Balance)
	require.Equal(t, int64(15_000), repo.balances[1])
	require.Equal(t, StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
}

func TestBalanceChainsAcrossPeriods(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[1] = 0
	svc := newTestService(repo, nil)
	ctx := context.Background()

	periods := []struct {
		ym      string
		offset  int64
		revenue int64
		want    int64
	}{
		{"2026-01", 50_000, 45_000, 5_000},
		{"2026-02", 30_000, 40_000, -5_000},
		{"2026-03", 20_000, 10_000, 5_000},
	}
	for _, p := range periods {
		o, err := svc.CreateOffset(ctx, CreateOffsetInput{
			PartnerID:     1,
			YearMonth:     p.ym,
			OffsetAmount:  p.offset,
			RevenueAmount: p.revenue,
		})
		require.NoError(t, err)
		confirmed, err := svc.ConfirmOffset(ctx, o.ID)
		require.NoError(t, err)
		require.Equal(t, p.want, confirmed.Balance, p.ym)
		require.Equal(t, p.want, repo.balances[1], p.ym)
	}
}

func TestConfirmIsTerminal(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[1] = 0
	svc := newTestService(repo, nil)
	ctx := context.Background()

	o, err := svc.CreateOffset(ctx, CreateOffsetInput{PartnerID: 1, YearMonth: "2026-01"})
	require.NoError(t, err)
	_, err = svc.ConfirmOffset(ctx, o.ID)
	require.NoError(t, err)

	_, err = svc.ConfirmOffset(ctx, o.ID)
	require.ErrorIs(t, err, httpx.ErrConflict)

	_, err = svc.UpdateOffset(ctx, o.ID, UpdateOffsetInput{OffsetAmount: 1})
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestDuplicatePeriodRejected(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[1] = 0
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.CreateOffset(ctx, CreateOffsetInput{PartnerID: 1, YearMonth: "2026-01"})
	require.NoError(t, err)
	_, err = svc.CreateOffset(ctx, CreateOffsetInput{PartnerID: 1, YearMonth: "2026-01"})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestCreateRejectsMalformedPeriod(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[1] = 0
	svc := newTestService(repo, nil)

	for _, ym := range []string{"2026/01", "202601", "2026-13", "jan-2026"} {
		_, err := svc.CreateOffset(context.Background(), CreateOffsetInput{PartnerID: 1, YearMonth: ym})
		require.ErrorIs(t, err, httpx.ErrValidation, ym)
	}
}

func TestConfirmPublishesEvent(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[1] = 0
	pub := &capturePublisher{}
	svc := newTestService(repo, pub)
	ctx := context.Background()

	o, err := svc.CreateOffset(ctx, CreateOffsetInput{PartnerID: 1, YearMonth: "2026-01", OffsetAmount: 100})
	require.NoError(t, err)
	_, err = svc.ConfirmOffset(ctx, o.ID)
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	require.Equal(t, webhooks.EventOffsetConfirmed, pub.events[0].EventType)
	require.Equal(t, int64(100), pub.events[0].Data["balance"])
}

func TestConfirmFeedsPayableIntoCashflowLedger(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[1] = 0
	ledger := &fakeLedger{}
	svc := newLedgerService(repo, ledger, nil)
	ctx := context.Background()

	o, err := svc.CreateOffset(ctx, CreateOffsetInput{
		PartnerID:     1,
		YearMonth:     "2026-01",
		OffsetAmount:  10_000,
		RevenueAmount: 45_000,
	})
	require.NoError(t, err)

	confirmed, err := svc.ConfirmOffset(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, int64(-35_000), confirmed.Balance)
	require.Equal(t, int64(35_000), confirmed.Payable())

	require.Len(t, ledger.inputs, 1)
	require.Equal(t, cashflow.SourceExpense, ledger.inputs[0].SourceType)
	require.Equal(t, o.ID, ledger.inputs[0].SourceID)
}

func TestConfirmWithNothingPayableSkipsLedger(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[1] = 0
	ledger := &fakeLedger{}
	svc := newLedgerService(repo, ledger, nil)
	ctx := context.Background()

	o, err := svc.CreateOffset(ctx, CreateOffsetInput{
		PartnerID:     1,
		YearMonth:     "2026-01",
		OffsetAmount:  50_000,
		RevenueAmount: 45_000,
	})
	require.NoError(t, err)

	confirmed, err := svc.ConfirmOffset(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5_000), confirmed.Balance)
	require.Empty(t, ledger.inputs)
}

func TestResolveConfirmedPeriodAsExpenseDocument(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[1] = -5_000
	svc := newTestService(repo, nil)
	ctx := context.Background()

	o, err := svc.CreateOffset(ctx, CreateOffsetInput{
		PartnerID:     1,
		YearMonth:     "2026-02",
		OffsetAmount:  10_000,
		RevenueAmount: 25_000,
	})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, o.ID)
	require.ErrorIs(t, err, httpx.ErrConflict, "drafts must not resolve")

	_, err = svc.ConfirmOffset(ctx, o.ID)
	require.NoError(t, err)

	doc, err := svc.Resolve(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, cashflow.DirectionExpense, doc.Direction)
	// -(-5000 + 10000 - 25000)
	require.Equal(t, int64(20_000), doc.Amount)
	require.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), doc.BaseDate)
	require.Equal(t, paymentterms.TermablePartner, doc.TermableType)
	require.Equal(t, int64(1), doc.TermableID)
}

func TestResolveNothingPayableConflicts(t *testing.T) {
	repo := newFakeRepo()
	repo.balances[1] = 0
	svc := newTestService(repo, nil)
	ctx := context.Background()

	o, err := svc.CreateOffset(ctx, CreateOffsetInput{
		PartnerID:     1,
		YearMonth:     "2026-03",
		OffsetAmount:  5_000,
		RevenueAmount: 5_000,
	})
	require.NoError(t, err)
	_, err = svc.ConfirmOffset(ctx, o.ID)
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, o.ID)
	require.ErrorIs(t, err, httpx.ErrConflict)
}

type capturePublisher struct {
	events []webhooks.Event
}

func (c *capturePublisher) PublishEvent(_ context.Context, evt webhooks.Event) error {
	c.events = append(c.events, evt)
	return nil
}
