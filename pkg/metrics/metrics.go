package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/featurekit/pkg/batch"
	"github.com/dmitrymomot/featurekit/pkg/flagstore"
	"github.com/dmitrymomot/featurekit/pkg/transport"
)

// Metrics holds the client collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Evaluations     *prometheus.CounterVec
	RemoteFallbacks *prometheus.CounterVec
	EventsEnqueued  prometheus.Counter
	EventsDropped   prometheus.Counter
	EventsFlushed   prometheus.Counter
	FlushErrors     prometheus.Counter
	FlushDuration   prometheus.Histogram
	Refreshes       *prometheus.CounterVec
	FlagsLoaded     prometheus.Gauge
	Requests        *prometheus.CounterVec
}

// New creates collectors under namespace. They are not registered until Register.
func New(namespace string) *Metrics {
	return &Metrics{
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flag_evaluations_total",
			Help:      "Flag evaluations by source and outcome.",
		}, []string{"source", "outcome"}),
		RemoteFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_fallbacks_total",
			Help:      "Remote evaluation calls by result.",
		}, []string{"result"}),
		EventsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_enqueued_total",
			Help:      "Events accepted into the send queue.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events evicted because the queue was full.",
		}),
		EventsFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_flushed_total",
			Help:      "Events delivered to the collector.",
		}),
		FlushErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flush_errors_total",
			Help:      "Flushes that stopped on a send failure.",
		}),
		FlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flush_duration_seconds",
			Help:      "Duration of queue flushes.",
			Buckets:   prometheus.DefBuckets,
		}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "definition_refreshes_total",
			Help:      "Flag definition refreshes by status.",
		}, []string{"status"}),
		FlagsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flags_loaded",
			Help:      "Flags in the current definitions snapshot.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requests to the remote service by endpoint and status code.",
		}, []string{"endpoint", "code"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Evaluations,
		m.RemoteFallbacks,
		m.EventsEnqueued,
		m.EventsDropped,
		m.EventsFlushed,
		m.FlushErrors,
		m.FlushDuration,
		m.Refreshes,
		m.FlagsLoaded,
		m.Requests,
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ObserveEvaluation counts one flag evaluation.
func (m *Metrics) ObserveEvaluation(source, outcome string) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(source, outcome).Inc()
}

// ObserveRemoteFallback counts one remote evaluation call.
func (m *Metrics) ObserveRemoteFallback(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RemoteFallbacks.WithLabelValues(result).Inc()
}

// ObserveEnqueued counts accepted events.
func (m *Metrics) ObserveEnqueued(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EventsEnqueued.Add(float64(n))
}

// ObserveDropped counts evicted events. Signature matches batch.WithOnDrop.
func (m *Metrics) ObserveDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EventsDropped.Add(float64(n))
}

// ObserveFlush records a flush. Signature matches batch.WithOnFlush.
func (m *Metrics) ObserveFlush(r batch.FlushResult) {
	if m == nil {
		return
	}
	if r.Items > 0 {
		m.EventsFlushed.Add(float64(r.Items))
	}
	if r.Err != nil {
		m.FlushErrors.Inc()
	}
	m.FlushDuration.Observe(r.Duration.Seconds())
}

// ObserveRefresh records a definitions refresh. Signature matches flagstore.WithOnRefresh.
func (m *Metrics) ObserveRefresh(r flagstore.RefreshResult) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(string(r.Status)).Inc()
	if r.Status != flagstore.RefreshFailed {
		m.FlagsLoaded.Set(float64(r.Flags))
	}
}

// ObserveAttempt counts an HTTP round trip. Signature matches transport.WithOnAttempt.
// Requests that got no response are labelled with code "error".
func (m *Metrics) ObserveAttempt(a transport.Attempt) {
	if m == nil {
		return
	}
	code := "error"
	if a.StatusCode > 0 {
		code = strconv.Itoa(a.StatusCode)
	}
	m.Requests.WithLabelValues(a.Endpoint, code).Inc()
}
