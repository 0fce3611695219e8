// Package trace logs each HTTP request with a request-scoped logger.
package trace

import (
	"net/http"
	"sync/atomic"
	"time"

	"expenses/internal/log"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Middleware must run after chi's RequestID so the logged id matches the
// X-Request-Id the client sees.
type Middleware struct {
	logger    *log.Logger
	extractIP func(*http.Request) string

	requests   atomic.Int64
	lastMicros atomic.Int64
}

// Metrics is a snapshot of the counters.
type Metrics struct {
	TotalRequests int64
	// LastResponseTime is in microseconds.
	LastResponseTime int64
}

func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	return &Middleware{logger: logger, extractIP: extractIP}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sum := log.RequestSummary{}
		if m.extractIP != nil {
			sum.ClientIP = m.extractIP(r)
		}

		reqLogger := m.logger.With(log.FieldRequestID, chimw.GetReqID(r.Context()))
		r = r.WithContext(log.NewContext(r.Context(), reqLogger))
		records := log.NewStructuredLogger(reqLogger)
		records.LogHTTPStart(r.Context(), r, sum.ClientIP)
		m.requests.Add(1)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Handlers that only write a body never call WriteHeader.
		sum.Status = ww.Status()
		if sum.Status == 0 {
			sum.Status = http.StatusOK
		}
		sum.Duration = time.Since(start)
		m.lastMicros.Store(sum.Duration.Microseconds())
		records.LogHTTPEnd(r.Context(), r, sum)
	})
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{TotalRequests: m.requests.Load(), LastResponseTime: m.lastMicros.Load()}
}

// ClientIP returns the address set by chi's RealIP middleware.
func ClientIP(r *http.Request) string {
	return r.RemoteAddr
}
