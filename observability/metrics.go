package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tailored-agentic-units/broker/action"
)

// Metrics records call outcomes in Prometheus. Register it on a dispatcher
// with Listener.
type Metrics struct {
	CallsTotal   *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
	InFlight     *prometheus.GaugeVec
}

// NewMetrics creates the collectors under namespace and registers them on
// reg when it is not nil.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		CallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "actions",
				Name:      "calls_total",
				Help:      "Total number of settled action calls by outcome state",
			},
			[]string{"action", "state"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "actions",
				Name:      "duration_seconds",
				Help:      "Action call duration in seconds, for calls with tracked start and end times",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action", "state"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "actions",
				Name:      "in_flight",
				Help:      "Number of action calls created but not yet settled",
			},
			[]string{"action"},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.CallsTotal, m.CallDuration, m.InFlight} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Listener returns an action.Listener. It needs the created state and every
// terminal state to be emitted.
func (m *Metrics) Listener() action.Listener {
	return func(state action.State, c *action.Context, _ any) {
		if state == action.StateCreated {
			m.InFlight.WithLabelValues(c.Name).Inc()
			return
		}
		if !state.Terminal() {
			return
		}
		m.InFlight.WithLabelValues(c.Name).Dec()
		m.CallsTotal.WithLabelValues(c.Name, string(state)).Inc()
		if d := c.Duration(); d > 0 {
			m.CallDuration.WithLabelValues(c.Name, string(state)).Observe(d.Seconds())
		}
	}
}
