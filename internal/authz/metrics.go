package authz

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts authorization decisions per permission. Wired into the
// route middleware so operators can watch denial spikes.
type Metrics struct {
	decisions *prometheus.CounterVec
}

// NewMetrics registers the decision counter against the provided registerer.
// A nil registerer uses the Prometheus default.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openleague_authz_decisions_total",
		Help: "Authorization decisions by permission and outcome.",
	}, []string{"permission", "allowed"})
	registerer.MustRegister(decisions)
	return &Metrics{decisions: decisions}
}

// Observe records one decision.
func (m *Metrics) Observe(p Permission, allowed bool) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(p), strconv.FormatBool(allowed)).Inc()
}
