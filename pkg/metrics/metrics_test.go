package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/batch"
	"github.com/dmitrymomot/featurekit/pkg/flagstore"
	"github.com/dmitrymomot/featurekit/pkg/metrics"
	"github.com/dmitrymomot/featurekit/pkg/transport"
)

func TestRegister(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New("test")
	require.NoError(t, m.Register(reg))

	m.ObserveEvaluation("local", "match")
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	assert.Error(t, metrics.New("test").Register(reg), "duplicate collectors must be rejected")
}

func TestObservations(t *testing.T) {
	t.Parallel()

	m := metrics.New("test")

	m.ObserveEvaluation("local", "match")
	m.ObserveEvaluation("local", "match")
	m.ObserveEvaluation("remote", "no_match")
	assert.InDelta(t, 2, testutil.ToFloat64(m.Evaluations.WithLabelValues("local", "match")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Evaluations.WithLabelValues("remote", "no_match")), 0)

	m.ObserveRemoteFallback(nil)
	m.ObserveRemoteFallback(errors.New("down"))
	assert.InDelta(t, 1, testutil.ToFloat64(m.RemoteFallbacks.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RemoteFallbacks.WithLabelValues("error")), 0)

	m.ObserveEnqueued(3)
	m.ObserveDropped(2)
	m.ObserveDropped(0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.EventsEnqueued), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.EventsDropped), 0)

	m.ObserveFlush(batch.FlushResult{Items: 5, Batches: 1, Duration: 10 * time.Millisecond})
	m.ObserveFlush(batch.FlushResult{Requeued: 4, Err: errors.New("send failed")})
	assert.InDelta(t, 5, testutil.ToFloat64(m.EventsFlushed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.FlushErrors), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.FlushDuration))

	m.ObserveRefresh(flagstore.RefreshResult{Status: flagstore.RefreshUpdated, Flags: 12})
	m.ObserveRefresh(flagstore.RefreshResult{Status: flagstore.RefreshFailed})
	assert.InDelta(t, 12, testutil.ToFloat64(m.FlagsLoaded), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Refreshes.WithLabelValues("updated")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Refreshes.WithLabelValues("failed")), 0)

	m.ObserveAttempt(transport.Attempt{Endpoint: transport.EndpointBatch, StatusCode: 200})
	m.ObserveAttempt(transport.Attempt{Endpoint: transport.EndpointDecide, Err: errors.New("refused")})
	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues("batch", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues("decide", "error")), 0)
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveEvaluation("local", "match")
		m.ObserveRemoteFallback(nil)
		m.ObserveEnqueued(1)
		m.ObserveDropped(1)
		m.ObserveFlush(batch.FlushResult{})
		m.ObserveRefresh(flagstore.RefreshResult{})
		m.ObserveAttempt(transport.Attempt{})
		assert.NoError(t, m.Register(prometheus.NewRegistry()))
	})
}
