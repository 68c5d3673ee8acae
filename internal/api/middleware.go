// Package api exposes a read-only JSON surface under /api/v1 for workflow
// automation tools. Access is gated by a shared key in the X-API-Key header.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// RequireKey rejects requests whose X-API-Key header does not match the
// configured key. The comparison is constant-time and runs before any
// data access.
func RequireKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-API-Key")
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
