package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for ownership-chain detection.
// All methods are safe on a nil receiver so tests can skip wiring.
type Metrics struct {
	// Detection runs by mode and outcome
	Runs *prometheus.CounterVec

	// Wall time of a full detection run
	RunDuration *prometheus.HistogramVec

	// Matches that cleared the confidence threshold
	ChainsDetected prometheus.Counter

	// Persistence results: inserted, duplicate, failed
	ChainsPersisted *prometheus.CounterVec

	// Outbound data API calls by provider and outcome category
	ProviderCalls *prometheus.CounterVec

	ProviderLatency *prometheus.HistogramVec

	// Deed cache lookups: hit, miss
	DeedCache *prometheus.CounterVec
}

// New registers the chain metrics with reg. Pass nil to use the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chainlead_detection_runs_total",
			Help: "Ownership-chain detection runs by mode and outcome",
		}, []string{"mode", "outcome"}),

		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chainlead_detection_duration_seconds",
			Help:    "Duration of a detection run including all outbound lookups",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"mode"}),

		ChainsDetected: f.NewCounter(prometheus.CounterOpts{
			Name: "chainlead_chains_detected_total",
			Help: "Chain matches at or above the confidence threshold",
		}),

		ChainsPersisted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chainlead_chains_persisted_total",
			Help: "Chain persistence attempts by result",
		}, []string{"result"}), // result: "inserted", "duplicate", "failed"

		ProviderCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chainlead_provider_calls_total",
			Help: "Outbound data API calls by provider and outcome",
		}, []string{"provider", "outcome"}),

		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chainlead_provider_call_duration_seconds",
			Help:    "Duration of outbound data API calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),

		DeedCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chainlead_deed_cache_lookups_total",
			Help: "Deed cache lookups by result",
		}, []string{"result"}),
	}
}

// ObserveRun records the outcome and duration of one detection run.
func (m *Metrics) ObserveRun(mode, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(mode, outcome).Inc()
	m.RunDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// AddChainsDetected counts matches that qualified in a run.
func (m *Metrics) AddChainsDetected(n int) {
	if m != nil && n > 0 {
		m.ChainsDetected.Add(float64(n))
	}
}

// IncrementPersisted records one persistence result.
func (m *Metrics) IncrementPersisted(result string) {
	if m != nil {
		m.ChainsPersisted.WithLabelValues(result).Inc()
	}
}

// ObserveProviderCall records an outbound call. outcome is "ok" or a provider error category.
func (m *Metrics) ObserveProviderCall(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderCalls.WithLabelValues(provider, outcome).Inc()
	m.ProviderLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordDeedCache records a deed cache hit or miss.
func (m *Metrics) RecordDeedCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.DeedCache.WithLabelValues(result).Inc()
}
