package core

import (
	"reflect"
	"testing"
	"time"

	"github.com/skyfieldworks/navscout/model"
	"github.com/skyfieldworks/navscout/timectrl"
)

type fakePositions struct {
	pos model.Position
	ok  bool
}

func (f *fakePositions) LatestFix() (model.Position, bool) { return f.pos, f.ok }

func (f *fakePositions) set(now time.Time, northM, eastM float64) {
	p := testPosition(northM, eastM)
	p.Time = now
	f.pos = p
	f.ok = true
}

type fakeLink struct {
	sample LinkSample
	ok     bool
}

func (f *fakeLink) LatestLink() (LinkSample, bool) { return f.sample, f.ok }

type fakeSensors struct {
	sample SensorSample
	ok     bool
}

func (f *fakeSensors) LatestSensors() (SensorSample, bool) { return f.sample, f.ok }

type fakeTracker struct {
	sample TrackerSample
	ok     bool
}

func (f *fakeTracker) LatestLock() (TrackerSample, bool) { return f.sample, f.ok }

type captureSink struct {
	directives []model.Directive
}

func (c *captureSink) EmitDirective(d model.Directive) { c.directives = append(c.directives, d) }

func (c *captureSink) last(t *testing.T) model.Directive {
	t.Helper()
	if len(c.directives) == 0 {
		t.Fatalf("no directive emitted")
	}
	return c.directives[len(c.directives)-1]
}

type fakeTelemetry struct {
	disabled []string
	tighten  int
}

func (f *fakeTelemetry) DisableRecording(reason string) { f.disabled = append(f.disabled, reason) }
func (f *fakeTelemetry) TightenTelemetry(on bool)       { f.tighten++ }

type engineHarness struct {
	engine    *SafetyEngine
	clock     *timectrl.ManualClock
	positions *fakePositions
	link      *fakeLink
	sensors   *fakeSensors
	tracker   *fakeTracker
	sink      *captureSink
	telemetry *fakeTelemetry
}

func newHarness(t *testing.T) *engineHarness {
	t.Helper()
	h := &engineHarness{
		clock:     timectrl.NewManualClock(t0),
		positions: &fakePositions{},
		link:      &fakeLink{sample: LinkSample{Healthy: true}, ok: true},
		sensors:   &fakeSensors{sample: SensorSample{BatteryPct: 80, TempC: 40}, ok: true},
		tracker:   &fakeTracker{},
		sink:      &captureSink{},
		telemetry: &fakeTelemetry{},
	}
	cfg := EngineConfig{
		Policy: testPolicy(),
		Rth:    RthConfig{LandAtHome: true, ArriveEpsilonM: 5},
		Follow: FollowPolicy{LockMinConfidence: 0.6},
	}
	h.engine = NewSafetyEngine(cfg, testGeofence(t), h.clock, nil, nil,
		WithPositionSource(h.positions),
		WithLinkMonitor(h.link),
		WithSensorHooks(h.sensors),
		WithTracker(h.tracker),
		WithDirectiveSink(h.sink),
		WithTelemetryControls(h.telemetry),
	)
	return h
}

// tick refreshes the fix timestamp and runs one evaluation pass.
func (h *engineHarness) tick(northM, eastM float64) model.Directive {
	now := h.clock.Now()
	h.positions.set(now, northM, eastM)
	d := h.engine.Tick(now)
	h.clock.Advance(time.Second)
	return d
}

func (h *engineHarness) flyToTransit(t *testing.T) {
	t.Helper()
	h.engine.Arm()
	h.tick(0, 0)
	if got := h.engine.Mission().State(); got != model.StateTransitToZone {
		t.Fatalf("state = %v, want TransitToZone after pre-flight", got)
	}
}

func TestEngineIdleHoldsUntilArmed(t *testing.T) {
	h := newHarness(t)

	d := h.tick(0, 0)
	if d.Kind != model.DirectiveHold || d.State != model.StateIdle {
		t.Fatalf("unarmed tick: got %v in %v, want Hold in Idle", d.Kind, d.State)
	}
}

func TestEnginePreflightBlocksOnBadGnss(t *testing.T) {
	h := newHarness(t)
	h.engine.Arm()

	now := h.clock.Now()
	p := testPosition(0, 0)
	p.Time = now
	p.Quality.Sats = 3
	h.positions.pos, h.positions.ok = p, true
	d := h.engine.Tick(now)
	if d.Kind != model.DirectiveHold || h.engine.Mission().State() != model.StateLaunchChecks {
		t.Fatalf("pre-flight must not pass on a degraded fix: %v in %v", d.Kind, h.engine.Mission().State())
	}
	h.clock.Advance(time.Second)

	d = h.tick(0, 0)
	if h.engine.Mission().State() != model.StateTransitToZone {
		t.Fatalf("state = %v, want TransitToZone once the fix is good", h.engine.Mission().State())
	}
	if d.Kind != model.DirectiveContinueMission {
		t.Fatalf("kind = %v, want ContinueMission", d.Kind)
	}
}

func TestEngineCorridorDriftEscalatesToRth(t *testing.T) {
	h := newHarness(t)
	h.flyToTransit(t)

	// A drift inside the tube stays advisory.
	d := h.tick(500, 10)
	if d.Kind != model.DirectiveContinueMission {
		t.Fatalf("in-corridor tick: kind = %v, want ContinueMission", d.Kind)
	}

	// 40m off axis leaves the 30m corridor; with no breach grace the next
	// evaluation commits to the return.
	d = h.tick(500, 40)
	if h.engine.Mission().State() != model.StateRth {
		t.Fatalf("state = %v, want Rth", h.engine.Mission().State())
	}
	if d.Kind != model.DirectiveReturnToLaunch {
		t.Fatalf("kind = %v, want ReturnToLaunch", d.Kind)
	}

	// Re-entering the corridor must not un-commit the return.
	d = h.tick(500, 0)
	if h.engine.Mission().State() != model.StateRth || d.Kind != model.DirectiveReturnToLaunch {
		t.Fatalf("Rth reverted after recovery: %v in %v", d.Kind, h.engine.Mission().State())
	}
}

func TestEngineRthArrivalLandsAndRearms(t *testing.T) {
	h := newHarness(t)
	h.flyToTransit(t)
	h.tick(500, 40)

	d := h.tick(2, 0)
	if d.Kind != model.DirectiveLand || h.engine.Mission().State() != model.StateLand {
		t.Fatalf("arrival: got %v in %v, want Land in Land", d.Kind, h.engine.Mission().State())
	}

	if !h.engine.Rearm() {
		t.Fatalf("Rearm from Land failed")
	}
	if h.engine.Mission().State() != model.StateIdle {
		t.Fatalf("state = %v, want Idle after re-arm", h.engine.Mission().State())
	}
}

func TestEngineLinkLossGrace(t *testing.T) {
	h := newHarness(t)
	h.flyToTransit(t)
	h.link.sample.Healthy = false

	// Grace is 5s at a 1s cadence: five ticks stay advisory.
	for i := 0; i < 5; i++ {
		d := h.tick(500, 0)
		if d.Kind != model.DirectiveContinueMission {
			t.Fatalf("tick %d: kind = %v before grace elapsed", i, d.Kind)
		}
	}
	d := h.tick(500, 0)
	if h.engine.Mission().State() != model.StateRth || d.Kind != model.DirectiveReturnToLaunch {
		t.Fatalf("after grace: got %v in %v, want ReturnToLaunch in Rth", d.Kind, h.engine.Mission().State())
	}
}

func TestEngineMissingLinkSampleCountsAsLost(t *testing.T) {
	h := newHarness(t)
	h.flyToTransit(t)
	h.link.ok = false

	for i := 0; i < 6; i++ {
		h.tick(500, 0)
	}
	if h.engine.Mission().State() != model.StateRth {
		t.Fatalf("a configured monitor with no sample must degrade: %v", h.engine.Mission().State())
	}
}

func TestEngineGnssFixLossLandsImmediately(t *testing.T) {
	h := newHarness(t)
	h.flyToTransit(t)

	now := h.clock.Now()
	p := testPosition(500, 0)
	p.Time = now
	p.Quality.HasFix = false
	h.positions.pos = p
	d := h.engine.Tick(now)
	if h.engine.Mission().State() != model.StateLand || d.Kind != model.DirectiveLand {
		t.Fatalf("fix loss: got %v in %v, want Land in Land", d.Kind, h.engine.Mission().State())
	}
}

func TestEngineTamperSideChannel(t *testing.T) {
	h := newHarness(t)
	h.flyToTransit(t)
	h.sensors.sample.Tamper = true

	h.tick(500, 0)
	if h.engine.Mission().State() != model.StateRth {
		t.Fatalf("tamper must commit to return: %v", h.engine.Mission().State())
	}
	h.tick(500, 0)

	// DisableRecording latches exactly once; tighten repeats while active.
	if len(h.telemetry.disabled) != 1 {
		t.Fatalf("DisableRecording called %d times, want 1", len(h.telemetry.disabled))
	}
	if h.telemetry.tighten < 2 {
		t.Fatalf("TightenTelemetry called %d times, want one per tamper tick", h.telemetry.tighten)
	}
}

func TestEngineBatteryLowDuringOperate(t *testing.T) {
	h := newHarness(t)
	h.flyToTransit(t)
	h.tick(1000, 0)
	if h.engine.Mission().State() != model.StateOperateInZone {
		t.Fatalf("state = %v, want OperateInZone", h.engine.Mission().State())
	}

	h.sensors.sample.BatteryPct = 10
	h.tick(1000, 0)
	if h.engine.Mission().State() != model.StateRth {
		t.Fatalf("low battery must commit to return: %v", h.engine.Mission().State())
	}
}

func TestEngineFollowGate(t *testing.T) {
	h := newHarness(t)
	h.flyToTransit(t)
	h.tick(1000, 0)

	h.tracker.ok = true
	h.tracker.sample = TrackerSample{
		Locked:     true,
		Confidence: 0.9,
		Target:     offsetPoint(testHome.Point(), 1000, 50),
	}
	d := h.tick(1000, 0)
	if d.Kind != model.DirectiveContinueMission {
		t.Fatalf("locked in-zone target: kind = %v, want ContinueMission", d.Kind)
	}

	// The target leaves the zone: pause, do not chase.
	h.tracker.sample.Target = offsetPoint(testHome.Point(), 500, 0)
	d = h.tick(1000, 0)
	if d.Kind != model.DirectiveHold {
		t.Fatalf("target outside zone: kind = %v, want Hold", d.Kind)
	}
	if h.engine.Mission().State() != model.StateOperateInZone {
		t.Fatalf("follow gate must never change mission state: %v", h.engine.Mission().State())
	}
}

func TestEngineEmitsExactlyOneDirectivePerTick(t *testing.T) {
	h := newHarness(t)
	h.engine.Arm()
	for i := 0; i < 10; i++ {
		h.tick(float64(i)*100, 0)
	}
	if len(h.sink.directives) != 10 {
		t.Fatalf("emitted %d directives over 10 ticks", len(h.sink.directives))
	}
}

func TestEngineDeterministicReplay(t *testing.T) {
	script := []struct {
		northM, eastM float64
		linkHealthy   bool
		batteryPct    float64
	}{
		{0, 0, true, 80},
		{200, 5, true, 80},
		{500, 10, true, 80},
		{500, 40, true, 80},
		{700, 0, false, 70},
		{900, 0, false, 20},
		{400, 0, true, 20},
		{2, 0, true, 20},
	}

	runScript := func() []model.Directive {
		h := newHarness(t)
		h.engine.Arm()
		for _, step := range script {
			h.link.sample.Healthy = step.linkHealthy
			h.sensors.sample.BatteryPct = step.batteryPct
			h.tick(step.northM, step.eastM)
		}
		return h.sink.directives
	}

	first := runScript()
	second := runScript()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical input scripts produced different directive sequences")
	}
}

func TestEngineStalePositionDegrades(t *testing.T) {
	h := newHarness(t)
	h.flyToTransit(t)

	// Deliver one good fix, then stop updating it while time advances.
	now := h.clock.Now()
	h.positions.set(now, 500, 0)
	h.engine.Tick(now)

	h.positions.ok = false
	for i := 0; i < 13; i++ {
		h.clock.Advance(time.Second)
		h.engine.Tick(h.clock.Now())
	}
	if h.engine.Mission().State() != model.StateRth {
		t.Fatalf("a stale fix must eventually commit to return: %v", h.engine.Mission().State())
	}
}
