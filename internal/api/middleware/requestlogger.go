package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sebaskun/taskscheduler/internal/logger"
	"github.com/sebaskun/taskscheduler/internal/metrics"
)

// RequestLogger returns a middleware that logs each request's method,
// path, status, and duration via zerolog, and records the same
// observations on the HTTP metrics.
func RequestLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", duration).
				Str("remote_addr", r.RemoteAddr).
				Msg("http request")

			metrics.RecordHTTPRequest(r.Method, r.URL.Path, http.StatusText(status), duration.Seconds())
		})
	}
}
