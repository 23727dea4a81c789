package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skyfieldworks/navscout/model"
)

// SupervisorCollector bundles Prometheus metrics for the safety engine and
// provides a ready-to-serve /metrics handler.
type SupervisorCollector struct {
	gatherer prometheus.Gatherer

	Ticks       *prometheus.CounterVec
	Directives  *prometheus.CounterVec
	Escalations *prometheus.CounterVec
	Transitions *prometheus.CounterVec

	MissionState prometheus.Gauge
	Severity     prometheus.Gauge
}

// NewSupervisorCollector registers the supervisor metrics against the
// provided registerer, defaulting to the global Prometheus registry when
// nil.
func NewSupervisorCollector(reg prometheus.Registerer) (*SupervisorCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supervisor_ticks_total",
		Help: "Total number of evaluation ticks, labeled by mission state.",
	}, []string{"state"})
	ticks, err := registerCounterVec(reg, ticks, "supervisor_ticks_total")
	if err != nil {
		return nil, err
	}

	directives := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supervisor_directives_total",
		Help: "Directives emitted, labeled by kind.",
	}, []string{"kind"})
	directives, err = registerCounterVec(reg, directives, "supervisor_directives_total")
	if err != nil {
		return nil, err
	}

	escalations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supervisor_trigger_escalations_total",
		Help: "Trigger escalations observed, labeled by source and severity.",
	}, []string{"source", "severity"})
	escalations, err = registerCounterVec(reg, escalations, "supervisor_trigger_escalations_total")
	if err != nil {
		return nil, err
	}

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supervisor_state_transitions_total",
		Help: "Mission state transitions, labeled by origin and destination.",
	}, []string{"from", "to"})
	transitions, err = registerCounterVec(reg, transitions, "supervisor_state_transitions_total")
	if err != nil {
		return nil, err
	}

	stateGauge, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "supervisor_mission_state",
		Help: "Current mission state as its numeric ordinal.",
	}), "supervisor_mission_state")
	if err != nil {
		return nil, err
	}
	sevGauge, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "supervisor_severity",
		Help: "Highest aggregated severity since the last re-arm, as its numeric ordinal.",
	}), "supervisor_severity")
	if err != nil {
		return nil, err
	}

	return &SupervisorCollector{
		gatherer:     gatherer,
		Ticks:        ticks,
		Directives:   directives,
		Escalations:  escalations,
		Transitions:  transitions,
		MissionState: stateGauge,
		Severity:     sevGauge,
	}, nil
}

// ObserveTick satisfies the engine's MetricsRecorder interface.
func (c *SupervisorCollector) ObserveTick(state model.MissionState, sev model.Severity, kind model.DirectiveKind) {
	if c == nil {
		return
	}
	c.Ticks.WithLabelValues(state.String()).Inc()
	c.Directives.WithLabelValues(kind.String()).Inc()
	c.MissionState.Set(float64(state))
	c.Severity.Set(float64(sev))
}

// ObserveEscalation counts a trigger escalation.
func (c *SupervisorCollector) ObserveEscalation(src model.TriggerSource, sev model.Severity) {
	if c == nil {
		return
	}
	c.Escalations.WithLabelValues(src.String(), sev.String()).Inc()
}

// RecordTransition satisfies the engine's TransitionSink interface so the
// collector can count state changes directly.
func (c *SupervisorCollector) RecordTransition(t model.Transition) {
	if c == nil {
		return
	}
	c.Transitions.WithLabelValues(t.From.String(), t.To.String()).Inc()
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SupervisorCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
