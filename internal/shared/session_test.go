package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testSessionManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "genba_session", time.Hour, false), mr
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "genba_session" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	sm, _ := testSessionManager(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	created, err := sm.Create(ctx, rec, 42)
	require.NoError(t, err)
	require.Equal(t, int64(42), created.UserID())

	cookie := sessionCookie(t, rec)
	require.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, int64(42), loaded.UserID())
}

func TestSessionMissingCookie(t *testing.T) {
	sm, _ := testSessionManager(t)

	loaded, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestSessionDestroy(t *testing.T) {
	sm, _ := testSessionManager(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	created, err := sm.Create(ctx, rec, 7)
	require.NoError(t, err)
	cookie := sessionCookie(t, rec)

	rec2 := httptest.NewRecorder()
	require.NoError(t, sm.Destroy(ctx, rec2, created))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Nil(t, loaded, "destroyed session must not resolve")
}

func TestSessionExpiry(t *testing.T) {
	sm, mr := testSessionManager(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	_, err := sm.Create(ctx, rec, 9)
	require.NoError(t, err)
	cookie := sessionCookie(t, rec)

	mr.FastForward(2 * time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Nil(t, loaded)
}
