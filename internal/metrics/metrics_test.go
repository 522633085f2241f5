package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Observe(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveComment()
	m.ObserveComment()
	m.ObserveClassification(false)
	m.ObserveClassification(true)
	m.ObserveClassification(true)
	m.ObserveModelLoadingWait(20)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CommentsFetched))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Classifications.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Classifications.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelLoadingWaits))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.ModelLoadingWaitTime))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveComment()
		m.ObserveClassification(true)
		m.ObserveModelLoadingWait(1)
	})
}
