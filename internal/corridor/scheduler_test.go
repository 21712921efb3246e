package corridor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fourStepConfig mirrors the reference corridor: four intersections with
// eta offsets [0, 8, 18, 28], a 5s green window, and a 3s cooldown.
func fourStepConfig() *Config {
	return &Config{
		Intersections: []IntersectionConfig{
			{ID: "sig-1", Name: "Main & 1st", ETAOffsetSeconds: 0},
			{ID: "sig-2", Name: "Main & 2nd", ETAOffsetSeconds: 8},
			{ID: "sig-3", Name: "Main & 3rd", ETAOffsetSeconds: 18},
			{ID: "sig-4", Name: "Main & 4th", ETAOffsetSeconds: 28},
		},
		CorridorDurationSeconds: ptrFloat64(5),
		CooldownSeconds:         ptrFloat64(3),
	}
}

func newTestEngine(cfg *Config) (*Scheduler, *Registry, *Ledger, *FakeClock) {
	clock := NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	registry := NewRegistry(cfg)
	ledger := NewLedger(cfg.GetLedgerCapacity())
	return NewScheduler(cfg, registry, ledger, clock), registry, ledger, clock
}

func stateOf(t *testing.T, r *Registry, id string) SignalState {
	t.Helper()
	s, ok := r.Get(id)
	require.True(t, ok, "signal %s not found", id)
	return s.State
}

func TestActivateImmediateEffects(t *testing.T) {
	t.Parallel()

	cfg := fourStepConfig()
	sched, registry, ledger, _ := newTestEngine(cfg)

	id := sched.Activate(Detection{Zone: ZoneCenter, Confidence: 0.91, TrackID: 7})
	require.Equal(t, int64(1), id)

	// Lead intersection is green before any timer fires; the rest hold
	// pre-clear.
	assert.Equal(t, StateCorridorGreen, stateOf(t, registry, "sig-1"))
	assert.Equal(t, StatePreClear, stateOf(t, registry, "sig-2"))
	assert.Equal(t, StatePreClear, stateOf(t, registry, "sig-3"))
	assert.Equal(t, StatePreClear, stateOf(t, registry, "sig-4"))

	// The incident is already visible, uncleared.
	recent := ledger.Recent(10)
	require.Len(t, recent, 1)
	assert.Equal(t, int64(1), recent[0].ID)
	assert.Nil(t, recent[0].CorridorClearedAt)
	assert.Equal(t, 7, recent[0].TrackID)
	assert.Equal(t, ModeVision, recent[0].Mode)
	assert.NotEmpty(t, recent[0].CorrelationID)
	assert.Equal(t, 100.0, recent[0].TimeSavedSeconds) // 25s x 4 intersections
}

func TestSwitchRecordsMatchSchedule(t *testing.T) {
	t.Parallel()

	cfg := fourStepConfig()
	sched, _, ledger, clock := newTestEngine(cfg)
	start := clock.Now()

	sched.Activate(Detection{Zone: ZoneLeft, Confidence: 0.8})

	inc := ledger.Recent(1)[0]
	require.Len(t, inc.Switches, len(cfg.Intersections))
	for k, sw := range inc.Switches {
		assert.Equal(t, cfg.Intersections[k].ID, sw.IntersectionID, "cascade order at %d", k)
		wantSwitch := start.Add(cfg.ETAOffset(k))
		assert.True(t, sw.SwitchedAt.Equal(wantSwitch), "switchedAt[%d] = %v, want %v", k, sw.SwitchedAt, wantSwitch)
		assert.True(t, sw.RevertedAt.Equal(wantSwitch.Add(5*time.Second)), "revertedAt[%d]", k)
	}
}

func TestCascadeTimeline(t *testing.T) {
	t.Parallel()

	cfg := fourStepConfig()
	sched, registry, ledger, clock := newTestEngine(cfg)

	sched.Activate(Detection{Zone: ZoneCenter, Confidence: 0.95, TrackID: 3})

	steps := []struct {
		advance time.Duration
		want    map[string]SignalState
	}{
		// t=4: sig-1 still green, rest pre-clear.
		{4 * time.Second, map[string]SignalState{
			"sig-1": StateCorridorGreen, "sig-2": StatePreClear,
			"sig-3": StatePreClear, "sig-4": StatePreClear,
		}},
		// t=5: sig-1 reverts to cooldown.
		{1 * time.Second, map[string]SignalState{"sig-1": StateCooldown}},
		// t=8: sig-1 idle again, sig-2 green.
		{3 * time.Second, map[string]SignalState{
			"sig-1": StateIdleRed, "sig-2": StateCorridorGreen,
		}},
		// t=13: sig-2 cooldown.
		{5 * time.Second, map[string]SignalState{"sig-2": StateCooldown}},
		// t=18: sig-3 green.
		{5 * time.Second, map[string]SignalState{"sig-2": StateIdleRed, "sig-3": StateCorridorGreen}},
		// t=28: sig-4 green, sig-3 idle (reverted at 23, idle at 26).
		{10 * time.Second, map[string]SignalState{"sig-3": StateIdleRed, "sig-4": StateCorridorGreen}},
		// t=33: sig-4 cooldown.
		{5 * time.Second, map[string]SignalState{"sig-4": StateCooldown}},
	}
	for _, step := range steps {
		clock.Advance(step.advance)
		for id, want := range step.want {
			assert.Equal(t, want, stateOf(t, registry, id), "signal %s at %v", id, clock.Now())
		}
	}

	// Cleared only after the last revert plus cooldown (t=36), not before.
	clock.Advance(2 * time.Second) // t=35
	require.Nil(t, ledger.Recent(1)[0].CorridorClearedAt)
	clock.Advance(1 * time.Second) // t=36
	inc := ledger.Recent(1)[0]
	require.NotNil(t, inc.CorridorClearedAt)
	assert.Equal(t, StateIdleRed, stateOf(t, registry, "sig-4"))

	lastRevert := inc.Switches[len(inc.Switches)-1].RevertedAt
	assert.False(t, inc.CorridorClearedAt.Before(lastRevert), "clearedAt before last revert")

	stats := ledger.Stats()
	assert.Equal(t, 1, stats.TotalIncidents)
	assert.Equal(t, 1, stats.TotalCleared)
}

func TestActivatedAtTracksGreenPhase(t *testing.T) {
	t.Parallel()

	cfg := fourStepConfig()
	sched, registry, _, clock := newTestEngine(cfg)
	start := clock.Now()

	sched.Activate(Detection{Confidence: 0.7})

	s, _ := registry.Get("sig-2")
	require.NotNil(t, s.ActivatedAt)
	assert.True(t, s.ActivatedAt.Equal(start), "pre-clear phase began at activation")
	assert.Equal(t, 8.0, s.ETASeconds)
	require.NotNil(t, s.RevertAfter)
	assert.True(t, s.RevertAfter.Equal(start.Add(13*time.Second)))

	clock.Advance(8 * time.Second)
	s, _ = registry.Get("sig-2")
	require.NotNil(t, s.ActivatedAt)
	assert.True(t, s.ActivatedAt.Equal(start.Add(8*time.Second)), "green phase began at activateAt")

	clock.Advance(8 * time.Second) // t=16: reverted at 13, idle at 16
	s, _ = registry.Get("sig-2")
	assert.Equal(t, StateIdleRed, s.State)
	assert.Nil(t, s.ActivatedAt)
	assert.Nil(t, s.RevertAfter)
}

func TestOverlappingCascades(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Intersections: []IntersectionConfig{
			{ID: "sig-1", ETAOffsetSeconds: 0},
			{ID: "sig-2", ETAOffsetSeconds: 8},
		},
		CorridorDurationSeconds: ptrFloat64(5),
		CooldownSeconds:         ptrFloat64(3),
	}
	sched, registry, ledger, clock := newTestEngine(cfg)

	var stale int
	sched.OnTransition = func(ev TransitionEvent) {
		if ev.Stale {
			stale++
		}
	}

	first := sched.Activate(Detection{TrackID: 1, Confidence: 0.9})
	clock.Advance(1 * time.Second)
	second := sched.Activate(Detection{TrackID: 2, Confidence: 0.8})

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	// The first cascade's sig-1 revert (t=5) is stale: the second cascade
	// owns the signal, which stays green until its own revert at t=6.
	clock.Advance(4 * time.Second)
	assert.Equal(t, StateCorridorGreen, stateOf(t, registry, "sig-1"))
	assert.Equal(t, 1, stale)

	clock.Advance(1 * time.Second) // t=6
	assert.Equal(t, StateCooldown, stateOf(t, registry, "sig-1"))

	// Run both cascades out. Each incident still gets its cleared stamp.
	clock.Advance(30 * time.Second)
	recent := ledger.Recent(50)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(2), recent[0].ID, "newest first")
	assert.Equal(t, int64(1), recent[1].ID)
	assert.NotNil(t, recent[0].CorridorClearedAt)
	assert.NotNil(t, recent[1].CorridorClearedAt)
	assert.Equal(t, StateIdleRed, stateOf(t, registry, "sig-1"))
	assert.Equal(t, StateIdleRed, stateOf(t, registry, "sig-2"))
}

func TestMonotonicIncidentIDs(t *testing.T) {
	t.Parallel()

	sched, _, ledger, clock := newTestEngine(fourStepConfig())
	for i := 0; i < 5; i++ {
		id := sched.Activate(Detection{TrackID: i + 1})
		assert.Equal(t, int64(i+1), id)
		clock.Advance(time.Second)
	}
	recent := ledger.Recent(50)
	require.Len(t, recent, 5)
	for i, inc := range recent {
		assert.Equal(t, int64(5-i), inc.ID)
	}
}

func TestSnapshotConsistency(t *testing.T) {
	t.Parallel()

	sched, _, _, clock := newTestEngine(fourStepConfig())

	snap := sched.Snapshot(10)
	assert.Nil(t, snap.LatestDetection)
	assert.Len(t, snap.Signals, 4)
	assert.Empty(t, snap.Incidents)
	assert.Equal(t, Stats{}, snap.Stats)

	sched.Activate(Detection{Zone: ZoneRight, Confidence: 0.66, TrackID: 12})
	clock.Advance(2 * time.Second)

	snap = sched.Snapshot(10)
	require.NotNil(t, snap.LatestDetection)
	assert.Equal(t, ZoneRight, snap.LatestDetection.Zone)
	require.Len(t, snap.Incidents, 1)
	assert.Equal(t, 1, snap.Stats.TotalIncidents)
	assert.Equal(t, "sig-1", snap.Signals[0].ID, "signals in cascade order")
}
