package core

import "github.com/skyfieldworks/navscout/model"

// The engine never blocks on a collaborator: every source is a non-blocking
// read of the latest value it has, with ok=false meaning no fresh sample.
// Missing or stale samples are degrade conditions, not errors.

// PositionSource supplies the most recent GNSS sample.
type PositionSource interface {
	// LatestFix returns the newest position sample. ok is false when the
	// source has produced nothing yet.
	LatestFix() (model.Position, bool)
}

// LinkSample is one link-health observation.
type LinkSample struct {
	Healthy bool
	RTTMs   float64
	LossPct float64
}

// LinkMonitor supplies uplink health.
type LinkMonitor interface {
	LatestLink() (LinkSample, bool)
}

// SensorSample bundles the hardware-condition signals sampled per tick.
type SensorSample struct {
	BatteryPct float64
	TempC      float64
	Tamper     bool
	Weather    bool
}

// SensorHooks supplies battery, thermal, tamper, and weather readings.
type SensorHooks interface {
	LatestSensors() (SensorSample, bool)
}

// TrackerSample is the vision tracker's lock report.
type TrackerSample struct {
	Locked     bool
	TrackID    uint64
	Confidence float64
	Target     model.Point
}

// Tracker supplies the optional target lock, consumed only by the bounded
// follow policy.
type Tracker interface {
	LatestLock() (TrackerSample, bool)
}

// DirectiveSink consumes the engine's per-tick directive. The engine does
// not care whether delivery succeeds; retry and backpressure belong to the
// consumer.
type DirectiveSink interface {
	EmitDirective(d model.Directive)
}

// TransitionSink consumes mission state transitions for audit persistence.
type TransitionSink interface {
	RecordTransition(t model.Transition)
}
