package observability

import (
	"errors"
	"strconv"
	"time"

	"github.com/jonathan/mentor-match/internal/conversation"
	"github.com/jonathan/mentor-match/internal/matching"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the matching service.
// It implements conversation.Observer.
type Metrics struct {
	StepTransitions    *prometheus.CounterVec
	ExtractionFailures *prometheus.CounterVec
	SearchDuration     *prometheus.HistogramVec
	SearchResults      prometheus.Histogram
	ConflictRetries    prometheus.Counter
	HTTPRequestsTotal  *prometheus.CounterVec
}

var _ conversation.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StepTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mentor_match_step_transitions_total",
				Help: "Total number of conversation step transitions",
			},
			[]string{"from", "to"},
		),
		ExtractionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mentor_match_extraction_failures_total",
				Help: "Total number of needs extractions that failed",
			},
			[]string{"timeout"},
		),
		SearchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mentor_match_search_duration_seconds",
				Help:    "Duration of mentor searches in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to 2s
			},
			[]string{"result"},
		),
		SearchResults: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mentor_match_search_results",
				Help:    "Number of suggestions returned per search",
				Buckets: prometheus.LinearBuckets(0, 1, 11),
			},
		),
		ConflictRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mentor_match_session_conflict_retries_total",
				Help: "Total number of session saves retried after a version conflict",
			},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mentor_match_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
	}
}

// Transitioned records one step change.
func (m *Metrics) Transitioned(tr conversation.Transition) {
	m.StepTransitions.WithLabelValues(string(tr.From), string(tr.To)).Inc()
}

// ExtractionFailed records a failed extraction.
func (m *Metrics) ExtractionFailed(timeout bool) {
	m.ExtractionFailures.WithLabelValues(strconv.FormatBool(timeout)).Inc()
}

// SearchCompleted records a search and its outcome.
func (m *Metrics) SearchCompleted(elapsed time.Duration, results int, err error) {
	m.SearchDuration.WithLabelValues(searchResult(err)).Observe(elapsed.Seconds())
	if err == nil {
		m.SearchResults.Observe(float64(results))
	}
}

// ConflictRetried records a retried save.
func (m *Metrics) ConflictRetried() {
	m.ConflictRetries.Inc()
}

// RecordRequest counts one served HTTP request.
func (m *Metrics) RecordRequest(route string, status int) {
	m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func searchResult(err error) string {
	var empty *matching.EmptyCatalogError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &empty):
		return "empty"
	default:
		return "error"
	}
}
