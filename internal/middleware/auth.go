// Package middleware provides HTTP middleware for the webhook API.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/lumivoice/recall/internal/auth"
)

// APIKey returns middleware that verifies a static API key header in
// constant time. Missing or mismatched keys are rejected with 401 before the
// handler runs.
func APIKey(header, expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.VerifyAPIKey(r.Header.Get(header), expected); err != nil {
				slog.Warn("API key authentication failed",
					"path", r.URL.Path, "remote", r.RemoteAddr, "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error": "` + err.Error() + `"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
