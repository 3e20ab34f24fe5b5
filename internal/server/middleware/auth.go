package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"csv-exporter/internal/security"
)

// Auth guards the export endpoints with an API key check and HMAC request
// signing. Either mechanism is skipped when its configuration is empty, so
// local development can run fully open.
func Auth(secret string, keyHashes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(keyHashes) > 0 {
				if !security.VerifyAPIKey(keyHashes, r.Header.Get("X-API-Key")) {
					slog.Warn("Rejected request with invalid API key", "path", r.URL.Path)
					http.Error(w, "Invalid API key", http.StatusUnauthorized)
					return
				}
			}

			if secret != "" {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					http.Error(w, "Failed to read body", http.StatusBadRequest)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				err = security.VerifyRequest(
					secret,
					r.Method,
					r.URL.Path,
					string(body),
					r.Header.Get("X-Timestamp"),
					r.Header.Get("X-Signature"),
				)
				if err != nil {
					slog.Warn("Rejected unsigned request", "path", r.URL.Path, "error", err)
					http.Error(w, "Invalid request signature", http.StatusUnauthorized)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
