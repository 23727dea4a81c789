package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LoopCollector exposes health metrics for the evaluation loop itself, as
// opposed to the mission-level metrics in SupervisorCollector.
type LoopCollector struct {
	gatherer prometheus.Gatherer

	TickDuration   prometheus.Histogram
	GnssFixAge     prometheus.Gauge
	FcSendFailures prometheus.Gauge
}

// NewLoopCollector registers loop metrics against the provided registerer.
func NewLoopCollector(reg prometheus.Registerer) (*LoopCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	tickHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "supervisor_tick_duration_seconds",
		Help:    "Duration of one full evaluation pass of the safety engine.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})
	tickHistogram, err := registerHistogram(reg, tickHistogram, "supervisor_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	fixAge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "supervisor_gnss_fix_age_seconds",
		Help: "Age of the most recent position sample at the last tick.",
	})
	fixAge, err = registerGauge(reg, fixAge, "supervisor_gnss_fix_age_seconds")
	if err != nil {
		return nil, err
	}

	fcFailures := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "supervisor_fc_send_failures",
		Help: "Cumulative flight-controller command send failures reported by the adapter.",
	})
	fcFailures, err = registerGauge(reg, fcFailures, "supervisor_fc_send_failures")
	if err != nil {
		return nil, err
	}

	return &LoopCollector{
		gatherer:       gatherer,
		TickDuration:   tickHistogram,
		GnssFixAge:     fixAge,
		FcSendFailures: fcFailures,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *LoopCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveTickDuration records how long one evaluation pass took.
func (c *LoopCollector) ObserveTickDuration(d time.Duration) {
	if c == nil || c.TickDuration == nil {
		return
	}
	c.TickDuration.Observe(d.Seconds())
}

// SetFixAge updates the position-age gauge.
func (c *LoopCollector) SetFixAge(age time.Duration) {
	if c == nil || c.GnssFixAge == nil {
		return
	}
	if age < 0 {
		age = 0
	}
	c.GnssFixAge.Set(age.Seconds())
}

// SetFcSendFailures mirrors the adapter's failure count.
func (c *LoopCollector) SetFcSendFailures(count int) {
	if c == nil || c.FcSendFailures == nil {
		return
	}
	c.FcSendFailures.Set(float64(count))
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
