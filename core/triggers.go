package core

import (
	"fmt"
	"time"

	"github.com/skyfieldworks/navscout/model"
)

// TriggerPolicy holds the per-source thresholds and grace periods. Loaded
// once from configuration; the engine treats it as immutable.
type TriggerPolicy struct {
	// GNSS quality gates. A fix failing any of them counts as degraded.
	MinSats   int
	MaxHDOP   float64
	MaxFixAge time.Duration

	// GNSS degrade ladder: short rung recommends Hold, sustained rung
	// recommends Rth. Total loss of fix recommends Land with no debounce.
	GnssHoldAfter time.Duration
	GnssRthAfter  time.Duration

	LinkLossAfter time.Duration

	BatteryLowPct float64

	ThermalSoftC float64
	// ThermalCriticalC escalates straight to Land with no debounce. Zero
	// disables the critical rung.
	ThermalCriticalC float64
	ThermalAfter     time.Duration

	WeatherAfter time.Duration
	// WeatherSeverity is the escalation for sustained bad weather, Hold or
	// Rth depending on site policy.
	WeatherSeverity model.Severity

	// GeofenceBreachAfter debounces corridor/zone containment failures.
	// Zero means a breach escalates on the tick it is observed. The radius
	// cap is never debounced.
	GeofenceBreachAfter time.Duration
}

// TriggerInputs are the raw per-tick conditions, already reduced to
// booleans by the engine's sampling step.
type TriggerInputs struct {
	LinkLost        bool
	GnssDegraded    bool
	GnssNoFix       bool
	BatteryLow      bool
	ThermalHigh     bool
	ThermalCritical bool
	Tamper          bool
	Weather         bool

	// GeofenceBreach is the corridor/zone containment failure relevant to
	// the current mission state. RadiusBreach is the absolute cap.
	GeofenceBreach bool
	RadiusBreach   bool
}

// Recommendation is the tick's aggregated escalation: the maximum severity
// across all currently-escalated sources, with the reason that produced it.
type Recommendation struct {
	Severity model.Severity
	Source   model.TriggerSource
	Reason   string

	// Side-channel flags for the telemetry collaborator; they are not
	// state-machine inputs.
	DisableRecording bool
	TightenTelemetry bool
}

// TriggerEngine debounces each source independently and produces one
// aggregated recommendation per tick. Debounce timers accumulate continuous
// true-duration against the injected monotonic clock and reset to zero the
// instant a condition reads false.
type TriggerEngine struct {
	policy TriggerPolicy

	// badSince holds the instant each source's condition last turned true;
	// the zero time means the condition is clear.
	badSince map[model.TriggerSource]time.Time
}

// NewTriggerEngine constructs an engine with all sources clear.
func NewTriggerEngine(policy TriggerPolicy) *TriggerEngine {
	return &TriggerEngine{
		policy:   policy,
		badSince: make(map[model.TriggerSource]time.Time),
	}
}

// conditionDuration tracks the continuous-true duration for a source. A
// false condition resets the timer completely; there is no partial credit.
func (te *TriggerEngine) conditionDuration(src model.TriggerSource, cond bool, now time.Time) time.Duration {
	if !cond {
		delete(te.badSince, src)
		return 0
	}
	since, ok := te.badSince[src]
	if !ok {
		te.badSince[src] = now
		return 0
	}
	return now.Sub(since)
}

// Evaluate runs every source for one tick and returns the max-aggregated
// recommendation. Ties keep the earlier source in the fixed evaluation
// order; severity itself is total-ordered so no source priority is needed.
func (te *TriggerEngine) Evaluate(now time.Time, in TriggerInputs) Recommendation {
	rec := Recommendation{Severity: model.SeverityNone, Reason: "nominal"}

	raise := func(src model.TriggerSource, sev model.Severity, reason string) {
		if sev > rec.Severity {
			rec.Severity = sev
			rec.Source = src
			rec.Reason = reason
		}
	}

	// Link loss: debounced.
	if d := te.conditionDuration(model.TriggerLinkLoss, in.LinkLost, now); in.LinkLost && d >= te.policy.LinkLossAfter {
		raise(model.TriggerLinkLoss, model.SeverityRth, fmt.Sprintf("link lost for %s", d.Round(time.Second)))
	}

	// GNSS ladder. Total fix loss bypasses the debounce entirely.
	if in.GnssNoFix {
		te.conditionDuration(model.TriggerGnssDegrade, true, now)
		raise(model.TriggerGnssDegrade, model.SeverityLand, "gnss fix lost")
	} else {
		d := te.conditionDuration(model.TriggerGnssDegrade, in.GnssDegraded, now)
		switch {
		case in.GnssDegraded && d >= te.policy.GnssRthAfter:
			raise(model.TriggerGnssDegrade, model.SeverityRth, fmt.Sprintf("gnss degraded for %s", d.Round(time.Second)))
		case in.GnssDegraded && d >= te.policy.GnssHoldAfter:
			raise(model.TriggerGnssDegrade, model.SeverityHold, fmt.Sprintf("gnss degraded for %s", d.Round(time.Second)))
		}
	}

	// Battery: immediate, no debounce.
	if in.BatteryLow {
		raise(model.TriggerBatteryLow, model.SeverityRth, "battery below threshold")
	}

	// Thermal ladder: the soft limit is debounced, the critical limit is
	// not.
	if d := te.conditionDuration(model.TriggerThermalHigh, in.ThermalHigh, now); in.ThermalHigh && d >= te.policy.ThermalAfter {
		raise(model.TriggerThermalHigh, model.SeverityRth, fmt.Sprintf("thermal soft limit exceeded for %s", d.Round(time.Second)))
	}
	if in.ThermalCritical {
		raise(model.TriggerThermalHigh, model.SeverityLand, "thermal critical limit exceeded")
	}

	// Tamper: immediate, plus logger side-channel flags.
	if in.Tamper {
		raise(model.TriggerTamper, model.SeverityRthImmediate, "tamper detected")
		rec.DisableRecording = true
		rec.TightenTelemetry = true
	}

	// Weather: debounced, severity per site policy.
	weatherSev := te.policy.WeatherSeverity
	if weatherSev == model.SeverityNone {
		weatherSev = model.SeverityRth
	}
	if d := te.conditionDuration(model.TriggerWeather, in.Weather, now); in.Weather && d >= te.policy.WeatherAfter {
		raise(model.TriggerWeather, weatherSev, fmt.Sprintf("weather hold-off for %s", d.Round(time.Second)))
	}

	// Geofence: the radius cap escalates on the tick it is breached;
	// corridor/zone failures honour the configured grace.
	if in.RadiusBreach {
		raise(model.TriggerGeofence, model.SeverityRth, "max radius exceeded")
	}
	if d := te.conditionDuration(model.TriggerGeofence, in.GeofenceBreach, now); in.GeofenceBreach && d >= te.policy.GeofenceBreachAfter {
		raise(model.TriggerGeofence, model.SeverityRth, "geofence containment violated")
	}

	return rec
}

// FixDegraded reports whether a position sample fails the configured GNSS
// quality gates.
func (te *TriggerEngine) FixDegraded(q model.FixQuality) bool {
	if !q.HasFix {
		return true
	}
	return q.Sats < te.policy.MinSats ||
		q.HDOP > te.policy.MaxHDOP ||
		q.FixAge > te.policy.MaxFixAge
}

// Policy returns the immutable trigger policy.
func (te *TriggerEngine) Policy() TriggerPolicy { return te.policy }
