package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "recall"

// Metrics holds the engine's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	comparisons      prometheus.Counter
	suggestions      *prometheus.CounterVec
	identityEdges    *prometheus.CounterVec
	refreshes        *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		comparisons: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "entity_comparisons_total",
			Help:      "Pairwise entity comparisons performed by the merge pipeline.",
		}),
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "merge_suggestions_total",
			Help:      "Merge suggestions by outcome (created, auto_accepted, skipped).",
		}, []string{"outcome"}),
		identityEdges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "identity_edges_total",
			Help:      "SAME_AS identity edges by outcome (created, skipped).",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "memory_refreshes_total",
			Help:      "Retrieval refreshes of last_accessed by result (ok, error).",
		}, []string{"result"}),
		pipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of merge and identity pipeline runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pipeline"}),
	}
	if reg != nil {
		reg.MustRegister(m.comparisons, m.suggestions, m.identityEdges, m.refreshes, m.pipelineDuration)
	}
	return m
}

func (m *Metrics) addComparisons(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.comparisons.Add(float64(n))
}

func (m *Metrics) addSuggestions(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.suggestions.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) addIdentityEdges(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.identityEdges.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) addRefreshes(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.refreshes.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) observePipeline(pipeline string, start time.Time) {
	if m == nil {
		return
	}
	m.pipelineDuration.WithLabelValues(pipeline).Observe(time.Since(start).Seconds())
}
