package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// RequestLoggerMiddleware logs every request when enabled, otherwise only requests slower than threshold.
func RequestLoggerMiddleware(enabled bool, slowQueriesThreshold time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			duration := time.Since(start)
			if !enabled && (slowQueriesThreshold == 0 || duration <= slowQueriesThreshold) {
				return
			}
			log.Info().
				Int64("duration_ms", duration.Milliseconds()).
				Str("uri", r.URL.String()).
				Str("method", r.Method).
				Str("remote", r.RemoteAddr).
				Msg("API request")
		})
	}
}
