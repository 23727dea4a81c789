package core

import (
	"time"

	"github.com/skyfieldworks/navscout/model"
)

// MissionStateMachine owns the top-level mission state. All mutation goes
// through the transition function, every transition is appended to an
// in-memory log, and transitions are monotonic with respect to severity:
// once Rth or worse is entered the machine never reverts to a less
// conservative state without an explicit external re-arm.
type MissionStateMachine struct {
	state model.MissionState

	// severity is the highest aggregated severity that has driven a
	// transition so far; it only moves up between re-arms.
	severity model.Severity

	log   []model.Transition
	sinks []TransitionSink
}

// NewMissionStateMachine starts in Idle awaiting an arm request.
func NewMissionStateMachine(sinks ...TransitionSink) *MissionStateMachine {
	return &MissionStateMachine{
		state:    model.StateIdle,
		severity: model.SeverityNone,
		sinks:    sinks,
	}
}

// State returns the single active mission state.
func (m *MissionStateMachine) State() model.MissionState { return m.state }

// Severity returns the highest severity that has driven a transition since
// the last re-arm.
func (m *MissionStateMachine) Severity() model.Severity { return m.severity }

// Transitions returns the append-only transition history. Callers must
// treat the slice as read-only.
func (m *MissionStateMachine) Transitions() []model.Transition { return m.log }

func (m *MissionStateMachine) transition(now time.Time, to model.MissionState, reason string) {
	t := model.Transition{At: now, From: m.state, To: to, Reason: reason}
	m.state = to
	m.log = append(m.log, t)
	for _, s := range m.sinks {
		s.RecordTransition(t)
	}
}

// Arm accepts the external arm request. Only valid from Idle.
func (m *MissionStateMachine) Arm(now time.Time) bool {
	if m.state != model.StateIdle {
		return false
	}
	m.transition(now, model.StateLaunchChecks, "arm requested")
	return true
}

// Rearm is the explicit operator action returning a landed vehicle to Idle.
// It is the only path out of Land and resets the severity floor.
func (m *MissionStateMachine) Rearm(now time.Time) bool {
	if m.state != model.StateLand {
		return false
	}
	m.severity = model.SeverityNone
	m.transition(now, model.StateIdle, "external re-arm")
	return true
}

// PreflightPassed moves LaunchChecks to TransitToZone once the pre-flight
// guards hold. Returns false while checks keep failing; the caller reports
// the fault.
func (m *MissionStateMachine) PreflightPassed(now time.Time) bool {
	if m.state != model.StateLaunchChecks {
		return false
	}
	m.transition(now, model.StateTransitToZone, "pre-flight checks passed")
	return true
}

// Step applies the tick's aggregated severity and containment facts to the
// guarded transition table. inZone reports polygon containment, contained
// reports that corridor-or-polygon containment still holds (entry guard for
// OperateInZone). It returns true when the state changed.
func (m *MissionStateMachine) Step(now time.Time, sev model.Severity, reason string, inZone, contained bool) bool {
	if sev > m.severity {
		m.severity = sev
	}

	switch m.state {
	case model.StateIdle, model.StateLaunchChecks:
		// Abort is the only escalation honoured on the ground.
		if sev == model.SeverityAbort {
			m.transition(now, model.StateAbort, reason)
			return true
		}
		return false

	case model.StateTransitToZone, model.StateOperateInZone:
		switch {
		case sev == model.SeverityAbort:
			m.transition(now, model.StateAbort, reason)
			return true
		case sev >= model.SeverityLand:
			m.transition(now, model.StateLand, reason)
			return true
		case sev >= model.SeverityRth:
			m.transition(now, model.StateRth, reason)
			return true
		}
		if m.state == model.StateTransitToZone && inZone && contained {
			m.transition(now, model.StateOperateInZone, "entered operating zone")
			return true
		}
		return false

	case model.StateRth:
		switch {
		case sev == model.SeverityAbort:
			m.transition(now, model.StateAbort, reason)
			return true
		case sev >= model.SeverityLand:
			m.transition(now, model.StateLand, reason)
			return true
		}
		return false

	case model.StateLand:
		// Terminal for the engine; only Rearm leaves Land. Abort still
		// applies for unrecoverable internal faults.
		if sev == model.SeverityAbort {
			m.transition(now, model.StateAbort, reason)
			return true
		}
		return false

	case model.StateAbort:
		return false

	default:
		// Unknown state is an internal invariant violation.
		m.transition(now, model.StateAbort, "internal invariant violation: unknown state")
		return true
	}
}

// LadderLanded records the RTH ladder reaching its own Land sub-state,
// which commits the outer machine to Land.
func (m *MissionStateMachine) LadderLanded(now time.Time) bool {
	if m.state != model.StateRth {
		return false
	}
	m.transition(now, model.StateLand, "rth ladder reached land")
	return true
}
