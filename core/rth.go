package core

import (
	"time"

	"github.com/skyfieldworks/navscout/model"
)

// RthConfig governs the return-to-home ladder. Immutable once loaded.
type RthConfig struct {
	// SettleDuration is how long Stabilize holds before advancing.
	SettleDuration time.Duration

	// RecoverAltM is the altitude recorded during RecoverAltitude. Actual
	// altitude control is delegated to the flight-controller collaborator.
	RecoverAltM float64

	// DirectToHome requests a straight-line return instead of corridor
	// reversal. It is honoured only when every sampled point along the
	// straight path stays inside the radius cap.
	DirectToHome bool

	// PathSampleM is the sampling step used to vet the direct path.
	PathSampleM float64

	// ArriveEpsilonM is the projected distance to home under which
	// Navigate terminates.
	ArriveEpsilonM float64

	// LandAtHome selects Land as the terminal sub-state; false selects
	// Loiter (hold at home pending external intervention).
	LandAtHome bool
}

// RthLadder is the nested state machine executed while the mission state is
// Rth. The sub-state is undefined whenever the ladder is inactive and is
// reset to Stabilize on every fresh entry.
type RthLadder struct {
	cfg      RthConfig
	geofence *Geofence

	active    bool
	sub       model.RthSubState
	severity  model.Severity
	enteredAt time.Time

	targetAltM float64
	reverse    bool // corridor reversal selected for Navigate
}

// NewRthLadder constructs an inactive ladder over the given geofence.
func NewRthLadder(cfg RthConfig, geofence *Geofence) *RthLadder {
	if cfg.PathSampleM <= 0 {
		cfg.PathSampleM = 25
	}
	if cfg.ArriveEpsilonM <= 0 {
		cfg.ArriveEpsilonM = 5
	}
	return &RthLadder{cfg: cfg, geofence: geofence}
}

// Active reports whether the ladder is currently running.
func (l *RthLadder) Active() bool { return l.active }

// SubState returns the current sub-state. Meaningful only while Active.
func (l *RthLadder) SubState() model.RthSubState { return l.sub }

// Landed reports whether the ladder has reached its terminal Land sub-state.
func (l *RthLadder) Landed() bool { return l.active && l.sub == model.RthLand }

// Enter starts or escalates the ladder. A fresh entry resets to Stabilize;
// re-entry while already active restarts the ladder only when the new
// severity is strictly higher (e.g. Tamper arriving mid-Navigate).
func (l *RthLadder) Enter(now time.Time, sev model.Severity) {
	if l.active && sev <= l.severity {
		return
	}
	l.active = true
	l.sub = model.RthStabilize
	l.severity = sev
	l.enteredAt = now
}

// Reset deactivates the ladder. Called when the outer state leaves Rth.
func (l *RthLadder) Reset() {
	l.active = false
	l.sub = model.RthStabilize
	l.severity = model.SeverityNone
}

// directPathSafe samples the straight segment from pos to home and checks
// the radius cap at every sample.
func (l *RthLadder) directPathSafe(pos model.Position) bool {
	start := Project(l.geofence.Home().Point(), pos.Point())
	dist := start.Norm()
	if dist == 0 {
		return true
	}
	steps := int(dist/l.cfg.PathSampleM) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		sample := Vec2{East: start.East * (1 - t), North: start.North * (1 - t)}
		if !l.geofence.RadiusCheckPlanar(sample) {
			return false
		}
	}
	return true
}

// Step advances the ladder one tick and returns the motion directive for
// it. The caller guarantees the outer mission state is Rth.
func (l *RthLadder) Step(now time.Time, pos model.Position, havePos bool) (model.DirectiveKind, string) {
	if !l.active {
		l.Enter(now, model.SeverityRth)
	}

	switch l.sub {
	case model.RthStabilize:
		if now.Sub(l.enteredAt) < l.cfg.SettleDuration {
			return model.DirectiveHold, "rth stabilize"
		}
		l.sub = model.RthRecoverAltitude
		fallthrough

	case model.RthRecoverAltitude:
		// Altitude control itself is the flight controller's job; the
		// ladder only records the target and moves on.
		l.targetAltM = l.cfg.RecoverAltM
		l.sub = model.RthNavigate
		l.reverse = true
		if l.cfg.DirectToHome && havePos && l.directPathSafe(pos) {
			l.reverse = false
		}
		fallthrough

	case model.RthNavigate:
		if havePos && l.geofence.DistanceHome(pos) <= l.cfg.ArriveEpsilonM {
			if l.cfg.LandAtHome {
				l.sub = model.RthLand
				return model.DirectiveLand, "rth arrived home"
			}
			l.sub = model.RthLoiter
			return model.DirectiveHold, "rth loitering at home"
		}
		if l.reverse {
			return model.DirectiveReturnToLaunch, "rth navigating corridor reversal"
		}
		return model.DirectiveReturnToLaunch, "rth navigating direct to home"

	case model.RthLand:
		return model.DirectiveLand, "rth landing"

	case model.RthLoiter:
		return model.DirectiveHold, "rth loitering at home"

	default:
		return model.DirectiveHold, "rth sub-state unknown"
	}
}

// TargetAltitudeM returns the altitude recorded by RecoverAltitude.
func (l *RthLadder) TargetAltitudeM() float64 { return l.targetAltM }
