package httpapi

import (
	"expvar"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

var (
	requestsTotal      = expvar.NewInt("requests_total")
	requestsErrors     = expvar.NewInt("requests_errors_total")
	liveSessionsActive = expvar.NewInt("live_sessions_active")
)

// NewLoggingMiddleware writes one access log line per request and maintains the request
// counters served at /debug/vars.
func NewLoggingMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			// The wrapper keeps Flusher and Hijacker, which the realtime transports need.
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			requestsTotal.Add(1)
			if status >= http.StatusBadRequest {
				requestsErrors.Add(1)
			}
			logger.Printf("request method=%s path=%s status=%d duration_ms=%d request_id=%s",
				r.Method, r.URL.Path, status, time.Since(start).Milliseconds(), middleware.GetReqID(r.Context()))
		})
	}
}
