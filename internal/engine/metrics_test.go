package engine

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.addComparisons(6)
	m.addSuggestions("created", 2)
	m.addSuggestions("skipped", 0)
	m.addIdentityEdges("created", 3)
	m.addRefreshes("ok", 4)
	m.observePipeline("merge", time.Now())

	assert.Equal(t, 6.0, testutil.ToFloat64(m.comparisons))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.suggestions.WithLabelValues("created")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.identityEdges.WithLabelValues("created")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.refreshes.WithLabelValues("ok")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "recall_entity_comparisons_total")
	assert.Contains(t, names, "recall_pipeline_duration_seconds")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.addComparisons(1)
		m.addSuggestions("created", 1)
		m.addIdentityEdges("created", 1)
		m.addRefreshes("error", 1)
		m.observePipeline("identity", time.Now())
	})
}
