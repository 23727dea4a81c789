package model

import "time"

// MissionState is the top-level supervisor state. Exactly one is active at
// a time; transitions happen only through the mission state machine.
type MissionState int

const (
	StateIdle MissionState = iota
	StateLaunchChecks
	StateTransitToZone
	StateOperateInZone
	StateRth
	StateLand
	StateAbort
)

func (s MissionState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateLaunchChecks:
		return "LAUNCH_CHECKS"
	case StateTransitToZone:
		return "TRANSIT_TO_ZONE"
	case StateOperateInZone:
		return "OPERATE_IN_ZONE"
	case StateRth:
		return "RTH"
	case StateLand:
		return "LAND"
	case StateAbort:
		return "ABORT"
	default:
		return "UNKNOWN"
	}
}

// RthSubState is the nested return-to-home ladder state. It is meaningful
// only while the outer state is StateRth.
type RthSubState int

const (
	RthStabilize RthSubState = iota
	RthRecoverAltitude
	RthNavigate
	RthLand
	RthLoiter
)

func (s RthSubState) String() string {
	switch s {
	case RthStabilize:
		return "STABILIZE"
	case RthRecoverAltitude:
		return "RECOVER_ALTITUDE"
	case RthNavigate:
		return "NAVIGATE"
	case RthLand:
		return "LAND"
	case RthLoiter:
		return "LOITER"
	default:
		return "UNKNOWN"
	}
}

// DirectiveKind is the restricted motion instruction set crossing the
// boundary to the flight-controller adapter. ContinueMission is consumed by
// the guidance layer only and is never forwarded as a raw FC command.
type DirectiveKind int

const (
	DirectiveHold DirectiveKind = iota
	DirectiveContinueMission
	DirectiveReturnToLaunch
	DirectiveLand
)

func (d DirectiveKind) String() string {
	switch d {
	case DirectiveHold:
		return "HOLD"
	case DirectiveContinueMission:
		return "CONTINUE_MISSION"
	case DirectiveReturnToLaunch:
		return "RETURN_TO_LAUNCH"
	case DirectiveLand:
		return "LAND"
	default:
		return "UNKNOWN"
	}
}

// Directive is the engine's sole per-tick output. It carries the mission
// state and the triggering reason for audit; one is emitted every tick even
// when it repeats the previous value.
type Directive struct {
	Kind     DirectiveKind
	State    MissionState
	SubState RthSubState // valid only when State == StateRth
	Reason   string
	At       time.Time
}

// Transition is one append-only record of a mission state change, handed to
// the telemetry collaborator.
type Transition struct {
	At     time.Time
	From   MissionState
	To     MissionState
	Reason string
}
