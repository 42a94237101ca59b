// File: internal/observability/metrics.go
package observability

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// CommandMetrics records wire command counts and latencies. It satisfies
// webdriver.CommandObserver.
type CommandMetrics struct {
	registry *prometheus.Registry
	commands *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewCommandMetrics registers the command collectors on a private registry.
func NewCommandMetrics(namespace string) *CommandMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &CommandMetrics{
		registry: reg,
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Wire protocol commands sent, by HTTP method and outcome.",
		}, []string{"method", "outcome"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Round-trip latency of wire protocol commands.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method"}),
	}
}

func (m *CommandMetrics) ObserveCommand(method, outcome string, elapsed time.Duration) {
	m.commands.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry, e.g. for promhttp.HandlerFor.
func (m *CommandMetrics) Registry() *prometheus.Registry { return m.registry }

// WriteText dumps every collected metric in the Prometheus text format.
func (m *CommandMetrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
