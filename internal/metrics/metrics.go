// Package metrics holds the Prometheus collectors of the quiz service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	sessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_session_transitions_total",
			Help: "Session lifecycle transitions by kind",
		},
		[]string{"transition"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "quiz_active_sessions",
			Help: "Sessions started and not yet ended by this instance",
		},
	)

	answerSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_answer_submissions_total",
			Help: "Answer submissions by outcome",
		},
		[]string{"outcome"},
	)

	answerRevealsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_answer_reveals_total",
			Help: "Correct-answer reveals served to players",
		},
	)
)

// RecordHTTPRequest observes one finished HTTP request.
func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordTransition counts a lifecycle transition ("start", "advance", "end").
func RecordTransition(transition string, ended bool) {
	sessionTransitionsTotal.WithLabelValues(transition).Inc()
	switch {
	case transition == "start":
		activeSessions.Inc()
	case ended:
		activeSessions.Dec()
	}
}

// RecordSubmission counts an answer submission.
func RecordSubmission(accepted bool) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	answerSubmissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordReveal counts a reveal.
func RecordReveal() {
	answerRevealsTotal.Inc()
}
