package offsets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/genba-erp/genba-erp/internal/shared"
	"github.com/genba-erp/genba-erp/internal/webhooks"
)

type fakeIdempotency struct {
	keys    map[string]bool
	deleted []string
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: make(map[string]bool)}
}

func (f *fakeIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = true
	return nil
}

func (f *fakeIdempotency) Delete(_ context.Context, key string) error {
	delete(f.keys, key)
	f.deleted = append(f.deleted, key)
	return nil
}

// flakyConfirmRepo fails Confirm while err is set, then behaves normally.
type flakyConfirmRepo struct {
	*fakeRepo
	err      error
	confirms int
}

func (f *flakyConfirmRepo) Confirm(ctx context.Context, id, actorID int64) (*Offset, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.confirms++
	return f.fakeRepo.Confirm(ctx, id, actorID)
}

func confirmRequest(t *testing.T, router http.Handler, id int64, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/offsets/%d/confirm", id), nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func newTestRouter(repo RepositoryPort, idem IdempotencyPort) http.Handler {
	svc := NewService(slog.Default(), repo, &fakeLedger{}, shared.NopAuditor{}, webhooks.NopPublisher{})
	h := NewHandler(slog.Default(), svc, idem)
	r := chi.NewRouter()
	r.Route("/offsets", h.MountRoutes)
	return r
}

func TestListPaginatesOffsets(t *testing.T) {
	base := newFakeRepo()
	base.balances[1] = 0
	router := newTestRouter(&flakyConfirmRepo{fakeRepo: base}, newFakeIdempotency())

	for _, ym := range []string{"2026-01", "2026-02", "2026-03"} {
		_, err := base.Create(context.Background(), CreateOffsetInput{PartnerID: 1, YearMonth: ym})
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/offsets?page=2&per_page=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Offsets    []Offset          `json:"offsets"`
		Pagination shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Offsets, 1)
	require.Equal(t, 2, body.Pagination.Page)
	require.Equal(t, 2, body.Pagination.PerPage)
	require.Equal(t, 3, body.Pagination.Total)
	require.Equal(t, 2, body.Pagination.TotalPages)
}

func TestConfirmFailureReleasesIdempotencyKey(t *testing.T) {
	base := newFakeRepo()
	base.balances[1] = 0
	repo := &flakyConfirmRepo{fakeRepo: base, err: context.DeadlineExceeded}
	idem := newFakeIdempotency()
	router := newTestRouter(repo, idem)

	o, err := base.Create(context.Background(), CreateOffsetInput{
		PartnerID: 1, YearMonth: "2026-01", OffsetAmount: 50_000, RevenueAmount: 45_000,
	})
	require.NoError(t, err)

	rec := confirmRequest(t, router, o.ID, "req-1")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, idem.deleted, "req-1", "failed confirmation must release the key")

	// The retry with the same key runs the confirmation for real instead of
	// replaying the unconfirmed row.
	repo.err = nil
	rec = confirmRequest(t, router, o.ID, "req-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var got Offset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, StatusConfirmed, got.Status)
	require.Equal(t, int64(5_000), got.Balance)
	require.Equal(t, 1, repo.confirms)
}

func TestConfirmReplayAfterSuccessDoesNotConfirmTwice(t *testing.T) {
	base := newFakeRepo()
	base.balances[1] = 10_000
	repo := &flakyConfirmRepo{fakeRepo: base}
	idem := newFakeIdempotency()
	router := newTestRouter(repo, idem)

	o, err := base.Create(context.Background(), CreateOffsetInput{
		PartnerID: 1, YearMonth: "2026-02", OffsetAmount: 50_000, RevenueAmount: 45_000,
	})
	require.NoError(t, err)

	rec := confirmRequest(t, router, o.ID, "req-2")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = confirmRequest(t, router, o.ID, "req-2")
	require.Equal(t, http.StatusOK, rec.Code)

	var got Offset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, StatusConfirmed, got.Status)
	require.Equal(t, int64(15_000), got.Balance)
	require.Equal(t, 1, repo.confirms)
	require.Empty(t, idem.deleted)
}
