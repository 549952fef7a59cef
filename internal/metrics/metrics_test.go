package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"terangahub.app/push/internal/metrics"
)

func TestMetrics_Observe(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveDispatch("success", 20*time.Millisecond)
	m.ObserveDispatch("success", 30*time.Millisecond)
	m.ObserveDispatch("missing", time.Millisecond)
	m.ObservePrune(true)
	m.ObserveUpsert(nil)
	m.ObserveUpsert(errors.New("db down"))
	m.ObserveEvent("social-events", "delivered")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("missing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Prunes.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Upserts.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("social-events", "delivered")))
}

func TestMetrics_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg)
	assert.Panics(t, func() { metrics.New(reg) })
}
