package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "passkey"
	subsystem = "ledger"

	statusCommitted = "committed"
	statusAborted   = "aborted"

	scopeInstance   = "instance"
	scopeCode       = "code"
	scopePersistent = "persistent"
)

type metrics struct {
	invocations *prometheus.CounterVec
	extensions  *prometheus.CounterVec
	sequence    prometheus.Gauge
}

func newMetrics() *metrics {
	return &metrics{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "invocations_total",
			Help:      "Number of invocations by the final status",
		}, []string{"status"}),
		extensions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lease_extensions_total",
			Help:      "Number of committed lease extensions by storage scope",
		}, []string{"scope"}),
		sequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sequence",
			Help:      "Current ledger sequence number",
		}),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.invocations, m.extensions, m.sequence} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
