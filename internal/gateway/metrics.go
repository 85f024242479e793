package gateway

import "github.com/prometheus/client_golang/prometheus"

// metrics exports the gateway's circuit state and call latency as
// Prometheus gauges/histograms, exposed through the registry that serves
// /metrics; the /health handlers do not read them.
type metrics struct {
	circuitOpen *prometheus.GaugeVec
	callLatency *prometheus.HistogramVec
	callTotal   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		circuitOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fhir_gateway_circuit_open",
			Help: "1 if the database circuit breaker is open, 0 otherwise.",
		}, nil),
		callLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fhir_gateway_db_call_duration_seconds",
			Help:    "Latency of database gateway calls by kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		callTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fhir_gateway_db_call_total",
			Help: "Count of database gateway calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.circuitOpen, m.callLatency, m.callTotal)
	}
	return m
}

func (m *metrics) setCircuitOpen(open bool) {
	if open {
		m.circuitOpen.WithLabelValues().Set(1)
	} else {
		m.circuitOpen.WithLabelValues().Set(0)
	}
}

func (m *metrics) observeCall(kind string, seconds float64, success bool) {
	m.callLatency.WithLabelValues(kind).Observe(seconds)
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.callTotal.WithLabelValues(kind, outcome).Inc()
}
