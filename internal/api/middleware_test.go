package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func keyProtected(t *testing.T, key string) (http.Handler, *int) {
	t.Helper()
	var hits int
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	})
	return RequireKey(key)(next), &hits
}

func TestRequireKeyRejectsMissingKey(t *testing.T) {
	handler, hits := keyProtected(t, "secret-key")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	require.Zero(t, *hits, "handler must not run without a valid key")
}

func TestRequireKeyRejectsWrongKey(t *testing.T) {
	handler, hits := keyProtected(t, "secret-key")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	require.Zero(t, *hits)
}

func TestRequireKeyAcceptsMatchingKey(t *testing.T) {
	handler, hits := keyProtected(t, "secret-key")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	req.Header.Set("X-API-Key", "secret-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, *hits)
}

func TestRequireKeyRefusesEmptyConfiguredKey(t *testing.T) {
	// An unset key must not mean open access.
	handler, hits := keyProtected(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	req.Header.Set("X-API-Key", "")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, *hits)
}
