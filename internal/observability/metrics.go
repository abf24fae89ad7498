package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts exchanges by their terminal outcome. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	ExchangesTotal *prometheus.CounterVec
	RedirectsTotal prometheus.Counter
	HopDuration    *prometheus.HistogramVec
}

// Exchange outcomes, one per terminal event.
const (
	OutcomeSuccess      = "success"
	OutcomeError        = "error"
	OutcomeTimeout      = "timeout"
	OutcomeRequestError = "request_error"
)

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		ExchangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shred",
			Name:      "exchanges_total",
			Help:      "Total exchanges by terminal outcome",
		}, []string{"outcome"}),
		RedirectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shred",
			Name:      "redirects_total",
			Help:      "Total redirects followed",
		}),
		HopDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shred",
			Name:      "hop_duration_seconds",
			Help:      "Time from dispatch to a fully buffered reply, per hop",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	r.MustRegister(m.ExchangesTotal, m.RedirectsTotal, m.HopDuration)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Exchange(outcome string) {
	if m == nil {
		return
	}
	m.ExchangesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Redirect() {
	if m == nil {
		return
	}
	m.RedirectsTotal.Inc()
}

func (m *Metrics) Hop(method string, d time.Duration) {
	if m == nil {
		return
	}
	m.HopDuration.WithLabelValues(method).Observe(d.Seconds())
}
