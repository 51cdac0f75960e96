package middleware

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the board engine.
type Metrics struct {
	// HTTP requests by method and status class
	RequestsTotal *prometheus.CounterVec

	// Request latency by method
	RequestDuration *prometheus.HistogramVec

	// Boards served to clients
	BoardsServed prometheus.Counter

	// Full inference passes (recompute or staleness-triggered)
	InferencePasses prometheus.Counter

	// Registry entries created during reconciliation
	ItemsReconciled prometheus.Counter
}

// New creates a new Metrics instance with all board engine metrics registered.
func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dwellio_http_requests_total",
			Help: "Total HTTP requests by method and status class",
		}, []string{"method", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dwellio_http_request_duration_seconds",
			Help:    "HTTP request duration by method",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method"}),

		BoardsServed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dwellio_boards_served_total",
			Help: "Total status board pages served",
		}),

		InferencePasses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dwellio_inference_passes_total",
			Help: "Total full inference passes over a property",
		}),

		ItemsReconciled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dwellio_items_reconciled_total",
			Help: "Total registry entries created from upstream sources",
		}),
	}
}

// IncrementBoardsServed records one served board page.
func (m *Metrics) IncrementBoardsServed() {
	if m != nil {
		m.BoardsServed.Inc()
	}
}

// IncrementInferencePasses records one full evaluation pass.
func (m *Metrics) IncrementInferencePasses() {
	if m != nil {
		m.InferencePasses.Inc()
	}
}

// AddItemsReconciled records newly created registry entries.
func (m *Metrics) AddItemsReconciled(n int) {
	if m != nil && n > 0 {
		m.ItemsReconciled.Add(float64(n))
	}
}

// Instrument returns middleware recording request count and latency. Pass nil
// metrics to disable.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		m.RequestsTotal.WithLabelValues(r.Method, statusClass(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
