package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/NateWesth/aleph-order-tracker/internal/service"
	"go.uber.org/zap"
)

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Logging logs every request with method, path, status and duration
func Logging(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

// WebhookAuth verifies the bearer token on inbound integration calls. A
// token failure is a genuine processing failure per the integration
// contract: 500 with an error body, recorded in the sync log via onFailure.
// A nil token service disables the check.
func WebhookAuth(ts service.TokenService, onFailure func(r *http.Request, reason string)) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ts == nil {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				onFailure(r, "missing bearer token")
				writeError(w, http.StatusInternalServerError, "missing bearer token")
				return
			}

			if _, err := ts.VerifyToken(tokenString); err != nil {
				onFailure(r, "invalid token")
				writeError(w, http.StatusInternalServerError, "invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
