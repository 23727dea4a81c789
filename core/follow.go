package core

import "github.com/skyfieldworks/navscout/model"

// FollowPolicy is the bounded follow-target gate, evaluated only while the
// mission state is OperateInZone and the tracker reports a locked target.
// It can only downgrade toward caution: a failed condition yields Hold for
// the tick, never a harder action. Escalation always goes through the
// trigger engine.
type FollowPolicy struct {
	// LockMinConfidence is the tracker confidence floor below which the
	// lock is not trusted.
	LockMinConfidence float64
}

// Evaluate gates the tick's directive given a locked target. The caller
// has already confirmed the lock; sev is the tick's aggregated severity.
func (p FollowPolicy) Evaluate(g *Geofence, lock TrackerSample, sev model.Severity) (model.DirectiveKind, string) {
	if sev >= model.SeverityHold {
		return model.DirectiveHold, "follow paused: trigger severity " + sev.String()
	}
	if lock.Confidence < p.LockMinConfidence {
		return model.DirectiveHold, "follow paused: lock confidence below threshold"
	}
	if !g.ZoneCheckPoint(lock.Target) {
		return model.DirectiveHold, "follow paused: target left operating zone"
	}
	return model.DirectiveContinueMission, "following locked target"
}
