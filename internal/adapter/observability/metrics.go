package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTPRequestsTotal counts requests by route, method, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	// HTTPRequestDuration observes request latency per route.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	// LLMRequestsTotal counts chat-completion calls by backend and outcome.
	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total number of LLM requests by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)
	// LLMRequestDuration observes chat-completion latency per backend.
	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"backend"},
	)
	// FallbacksTotal counts deterministic fallbacks taken per component when
	// generation fails or output does not parse.
	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_fallbacks_total",
			Help: "Total number of deterministic fallbacks taken",
		},
		[]string{"component"},
	)

	// TurnsTotal counts processed turns by outcome (continued, completed).
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_turns_total",
			Help: "Total number of interview turns processed",
		},
		[]string{"outcome"},
	)
	// InterviewsStartedTotal counts sessions started.
	InterviewsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interviews_started_total",
			Help: "Total number of interview sessions started",
		},
	)
	// InterviewsCompletedTotal counts terminal sessions by completion reason.
	InterviewsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interviews_completed_total",
			Help: "Total number of interviews completed by reason",
		},
		[]string{"reason"},
	)
	// TurnScoreHistogram tracks the distribution of per-turn overall scores.
	TurnScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interview_turn_score",
			Help:    "Distribution of per-turn overall scores (0..100)",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
)

// InitMetrics registers all collectors with the default registry.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(FallbacksTotal)
	prometheus.MustRegister(TurnsTotal)
	prometheus.MustRegister(InterviewsStartedTotal)
	prometheus.MustRegister(InterviewsCompletedTotal)
	prometheus.MustRegister(TurnScoreHistogram)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil.
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// RecordLLMRequest records one chat-completion call.
func RecordLLMRequest(backend, outcome string, dur time.Duration) {
	LLMRequestsTotal.WithLabelValues(backend, outcome).Inc()
	LLMRequestDuration.WithLabelValues(backend).Observe(dur.Seconds())
}

// RecordFallback records a deterministic fallback taken by a component.
func RecordFallback(component string) {
	FallbacksTotal.WithLabelValues(component).Inc()
}

// RecordTurn records one processed turn and its overall score.
func RecordTurn(outcome string, score int) {
	TurnsTotal.WithLabelValues(outcome).Inc()
	if score >= 0 && score <= 100 {
		TurnScoreHistogram.Observe(float64(score))
	}
}

// RecordCompletion records a terminal interview by reason.
func RecordCompletion(reason string) {
	InterviewsCompletedTotal.WithLabelValues(reason).Inc()
}
