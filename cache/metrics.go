package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	registeredTotal *prometheus.CounterVec
	finishedTotal   *prometheus.CounterVec
	live            *prometheus.GaugeVec
}

func newMetrics() *metrics {
	return &metrics{
		registeredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "cache",
			Name:      "registered_total",
			Help:      "Exchanges registered, by prefix.",
		}, []string{"prefix"}),
		finishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "cache",
			Name:      "finished_total",
			Help:      "Exchanges ended, by prefix and outcome.",
		}, []string{"prefix", "outcome"}),
		live: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wallet",
			Subsystem: "cache",
			Name:      "live",
			Help:      "Exchanges currently registered, by prefix.",
		}, []string{"prefix"}),
	}
}

func (m *metrics) register(reg prometheus.Registerer) {
	reg.MustRegister(m.registeredTotal, m.finishedTotal, m.live)
}

func (m *metrics) registered(prefix string) {
	m.registeredTotal.WithLabelValues(prefix).Inc()
	m.live.WithLabelValues(prefix).Inc()
}

func (m *metrics) finished(prefix, outcome string) {
	m.finishedTotal.WithLabelValues(prefix, outcome).Inc()
	m.live.WithLabelValues(prefix).Dec()
}
