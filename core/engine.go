package core

import (
	"context"
	"time"

	"github.com/skyfieldworks/navscout/internal/logging"
	"github.com/skyfieldworks/navscout/model"
	"github.com/skyfieldworks/navscout/timectrl"
)

// EngineConfig bundles the immutable policy inputs for the safety engine.
type EngineConfig struct {
	Policy TriggerPolicy
	Rth    RthConfig
	Follow FollowPolicy

	// PositionStaleAfter is the expected fresh-position interval; no new
	// sample within it counts as GNSS degrade.
	PositionStaleAfter time.Duration
}

// MetricsRecorder receives per-tick observations. The engine tolerates a
// nil recorder.
type MetricsRecorder interface {
	ObserveTick(state model.MissionState, sev model.Severity, kind model.DirectiveKind)
	ObserveEscalation(src model.TriggerSource, sev model.Severity)
}

// TelemetryControls is the side channel to the telemetry collaborator for
// tamper handling. Not a state-machine input.
type TelemetryControls interface {
	DisableRecording(reason string)
	TightenTelemetry(on bool)
}

// SafetyEngine is the single-threaded mission safety supervisor. It owns
// all mutable mission state exclusively and is driven once per tick; it is
// not re-entrant mid-tick. Collaborator reads never block and every tick
// ends with exactly one emitted directive, repeated values included.
type SafetyEngine struct {
	cfg   EngineConfig
	clock timectrl.Clock
	log   logging.Logger

	geofence *Geofence
	triggers *TriggerEngine
	mission  *MissionStateMachine
	ladder   *RthLadder

	positions PositionSource
	link      LinkMonitor
	sensors   SensorHooks
	tracker   Tracker

	sinks     []DirectiveSink
	metrics   MetricsRecorder
	telemetry TelemetryControls

	// Latest and last-known-good samples; owned by the engine, replaced
	// per tick.
	lastFix  model.Position
	haveFix  bool
	lastGood model.Position
	haveGood bool

	lastDirective model.Directive
	haveDirective bool

	recordingDisabled bool
}

// EngineOption customises SafetyEngine construction.
type EngineOption func(*SafetyEngine)

// WithPositionSource attaches the GNSS collaborator.
func WithPositionSource(s PositionSource) EngineOption {
	return func(e *SafetyEngine) { e.positions = s }
}

// WithLinkMonitor attaches the uplink health collaborator.
func WithLinkMonitor(m LinkMonitor) EngineOption {
	return func(e *SafetyEngine) { e.link = m }
}

// WithSensorHooks attaches the hardware-condition collaborator.
func WithSensorHooks(s SensorHooks) EngineOption {
	return func(e *SafetyEngine) { e.sensors = s }
}

// WithTracker attaches the optional target tracker.
func WithTracker(t Tracker) EngineOption {
	return func(e *SafetyEngine) { e.tracker = t }
}

// WithDirectiveSink registers a directive consumer. May be used repeatedly.
func WithDirectiveSink(s DirectiveSink) EngineOption {
	return func(e *SafetyEngine) { e.sinks = append(e.sinks, s) }
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) EngineOption {
	return func(e *SafetyEngine) { e.metrics = m }
}

// WithTelemetryControls attaches the telemetry side channel.
func WithTelemetryControls(c TelemetryControls) EngineOption {
	return func(e *SafetyEngine) { e.telemetry = c }
}

// NewSafetyEngine wires the geofence, trigger engine, state machine, and
// RTH ladder together. transitionSinks receive the append-only transition
// log entries as they happen.
func NewSafetyEngine(cfg EngineConfig, geofence *Geofence, clock timectrl.Clock, log logging.Logger, transitionSinks []TransitionSink, opts ...EngineOption) *SafetyEngine {
	if clock == nil {
		clock = timectrl.SystemClock{}
	}
	if log == nil {
		log = logging.Noop()
	}
	if cfg.PositionStaleAfter <= 0 {
		cfg.PositionStaleAfter = 3 * time.Second
	}
	e := &SafetyEngine{
		cfg:      cfg,
		clock:    clock,
		log:      log,
		geofence: geofence,
		triggers: NewTriggerEngine(cfg.Policy),
		mission:  NewMissionStateMachine(transitionSinks...),
		ladder:   NewRthLadder(cfg.Rth, geofence),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mission exposes the state machine for status reads and arm/re-arm.
func (e *SafetyEngine) Mission() *MissionStateMachine { return e.mission }

// Ladder exposes the RTH ladder for status reads.
func (e *SafetyEngine) Ladder() *RthLadder { return e.ladder }

// LastKnownGood returns the most recent position that met the quality
// thresholds.
func (e *SafetyEngine) LastKnownGood() (model.Position, bool) {
	return e.lastGood, e.haveGood
}

// Arm accepts the external arm request.
func (e *SafetyEngine) Arm() bool { return e.mission.Arm(e.clock.Now()) }

// Rearm accepts the external operator re-arm from Land.
func (e *SafetyEngine) Rearm() bool { return e.mission.Rearm(e.clock.Now()) }

// Tick runs one full evaluation pass: sample inputs, evaluate geofence and
// triggers, step the state machine and ladder, and emit the directive.
// The host must serialise calls; the engine holds no internal lock.
func (e *SafetyEngine) Tick(now time.Time) model.Directive {
	ctx := context.Background()

	// Abort is terminal: keep emitting the conservative directive so the
	// audit trail has no gaps, but run no further mission logic.
	if e.mission.State() == model.StateAbort {
		return e.emit(now, model.DirectiveLand, "mission aborted")
	}

	// 1. Sample inputs. All reads are non-blocking last-known values.
	if e.positions != nil {
		if fix, ok := e.positions.LatestFix(); ok {
			e.lastFix = fix
			e.haveFix = true
		}
	}
	stale := !e.haveFix || now.Sub(e.lastFix.Time) > e.cfg.PositionStaleAfter
	noFix := e.haveFix && !e.lastFix.Quality.HasFix
	degraded := stale || noFix || e.triggers.FixDegraded(e.lastFix.Quality)
	if e.haveFix && !degraded {
		e.lastGood = e.lastFix
		e.haveGood = true
	}
	havePos := e.haveFix && !noFix

	// 2. Geofence. Containment failures and the radius cap become
	// synthetic trigger inputs; they never bypass the state machine.
	var gf GeofenceResult
	var breach, radius bool
	if havePos {
		gf = e.geofence.Evaluate(e.lastFix)
		radius = !gf.RadiusOK
		switch e.mission.State() {
		case model.StateTransitToZone:
			breach = !gf.CorridorOK
		case model.StateOperateInZone:
			breach = !gf.ZoneOK
		}
	}

	// 3. Link and sensor samples. A configured monitor with no sample is
	// a degrade for that source; an absent collaborator asserts nothing.
	linkLost := false
	if e.link != nil {
		sample, ok := e.link.LatestLink()
		linkLost = !ok || !sample.Healthy
	}
	var sens SensorSample
	sensOK := false
	if e.sensors != nil {
		sens, sensOK = e.sensors.LatestSensors()
		if !sensOK {
			e.log.Warn(ctx, "sensor sample missing", logging.String("tick", now.Format(time.RFC3339)))
		}
	}

	thermal := ThermalNormal
	if sensOK {
		thermal = ClassifyThermal(sens.TempC, e.cfg.Policy.ThermalSoftC, e.cfg.Policy.ThermalCriticalC)
	}
	in := TriggerInputs{
		LinkLost:        linkLost,
		GnssDegraded:    degraded,
		GnssNoFix:       noFix,
		BatteryLow:      sensOK && sens.BatteryPct < e.cfg.Policy.BatteryLowPct,
		ThermalHigh:     thermal >= ThermalWarning,
		ThermalCritical: thermal == ThermalCritical,
		Tamper:          sensOK && sens.Tamper,
		Weather:         sensOK && sens.Weather,
		GeofenceBreach:  breach,
		RadiusBreach:    radius,
	}

	// 4. Aggregate triggers into the tick's recommendation.
	rec := e.triggers.Evaluate(now, in)
	if rec.Severity > model.SeverityNone {
		if e.metrics != nil {
			e.metrics.ObserveEscalation(rec.Source, rec.Severity)
		}
		e.log.Warn(ctx, "trigger escalated",
			logging.String("source", rec.Source.String()),
			logging.String("severity", rec.Severity.String()),
			logging.String("reason", rec.Reason))
	}
	if rec.DisableRecording && e.telemetry != nil && !e.recordingDisabled {
		e.recordingDisabled = true
		e.telemetry.DisableRecording(rec.Reason)
	}
	if rec.TightenTelemetry && e.telemetry != nil {
		e.telemetry.TightenTelemetry(true)
	}

	// 5. Pre-flight progression.
	if e.mission.State() == model.StateLaunchChecks {
		if havePos && !degraded {
			e.mission.PreflightPassed(now)
		} else {
			e.log.Info(ctx, "pre-flight checks failing", logging.String("reason", "gnss quality below thresholds"))
		}
	}

	// 6. Step the mission state machine.
	prev := e.mission.State()
	inZone := havePos && gf.ZoneOK
	contained := havePos && (gf.CorridorOK || gf.ZoneOK)
	e.mission.Step(now, rec.Severity, rec.Reason, inZone, contained)

	// 7. Ladder lifecycle: active exactly while the outer state is Rth.
	state := e.mission.State()
	if state == model.StateRth {
		sev := rec.Severity
		if sev < model.SeverityRth {
			sev = model.SeverityRth
		}
		e.ladder.Enter(now, sev)
	} else if prev == model.StateRth && state != model.StateRth {
		e.ladder.Reset()
	}

	// 8. Select the tick's directive.
	kind, reason := e.directiveFor(now, state, rec)
	return e.emit(now, kind, reason)
}

func (e *SafetyEngine) directiveFor(now time.Time, state model.MissionState, rec Recommendation) (model.DirectiveKind, string) {
	switch state {
	case model.StateIdle:
		return model.DirectiveHold, "idle"
	case model.StateLaunchChecks:
		return model.DirectiveHold, "launch checks"

	case model.StateTransitToZone:
		if rec.Severity >= model.SeverityHold {
			return model.DirectiveHold, rec.Reason
		}
		return model.DirectiveContinueMission, "transit to zone"

	case model.StateOperateInZone:
		if e.tracker != nil {
			if lock, ok := e.tracker.LatestLock(); ok && lock.Locked {
				return e.cfg.Follow.Evaluate(e.geofence, lock, rec.Severity)
			}
		}
		if rec.Severity >= model.SeverityHold {
			return model.DirectiveHold, rec.Reason
		}
		return model.DirectiveContinueMission, "operating in zone"

	case model.StateRth:
		kind, reason := e.ladder.Step(now, e.lastFix, e.haveFix && e.lastFix.Quality.HasFix)
		if e.ladder.Landed() {
			e.mission.LadderLanded(now)
		}
		return kind, reason

	case model.StateLand:
		return model.DirectiveLand, "landing"
	case model.StateAbort:
		return model.DirectiveLand, "mission aborted"
	default:
		// Unreachable by construction; treated as an internal invariant
		// violation per the error taxonomy.
		e.mission.Step(now, model.SeverityAbort, "internal invariant violation", false, false)
		return model.DirectiveLand, "internal invariant violation"
	}
}

// emit builds the directive, fans it out, and records metrics. Exactly one
// emit happens per tick.
func (e *SafetyEngine) emit(now time.Time, kind model.DirectiveKind, reason string) model.Directive {
	d := model.Directive{
		Kind:     kind,
		State:    e.mission.State(),
		SubState: e.ladder.SubState(),
		Reason:   reason,
		At:       now,
	}
	e.lastDirective = d
	e.haveDirective = true
	for _, s := range e.sinks {
		s.EmitDirective(d)
	}
	if e.metrics != nil {
		e.metrics.ObserveTick(d.State, e.mission.Severity(), d.Kind)
	}
	e.log.Debug(context.Background(), "directive emitted",
		logging.String("kind", d.Kind.String()),
		logging.String("state", d.State.String()),
		logging.String("reason", d.Reason))
	return d
}
