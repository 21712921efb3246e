package corridor

import (
	"log"
	"sync"
	"time"
)

// TransitionEvent describes one applied (or discarded) deferred signal
// transition. Used by collaborators for metrics and live push.
type TransitionEvent struct {
	IncidentID     int64
	IntersectionID string
	State          SignalState
	Stale          bool
	At             time.Time
}

// Scheduler is the corridor cascade engine. One Activate call computes the
// timed green wave for every configured intersection, applies the immediate
// transitions, schedules the deferred ones on the injected clock, and
// records the incident.
//
// Overlapping cascades are allowed: a new detection does not cancel an
// in-flight cascade. Each Activate claims a fresh per-signal generation, so
// deferred transitions belonging to an older cascade become no-ops once a
// newer cascade has touched the same signal.
type Scheduler struct {
	cfg      *Config
	clock    Clock
	registry *Registry
	ledger   *Ledger

	// OnTransition, when set before the first Activate, is invoked for
	// every deferred transition. Must not block.
	OnTransition func(TransitionEvent)

	mu     sync.Mutex
	nextID int64
	latest *Detection
}

// NewScheduler wires the engine. A nil clock selects the wall clock.
func NewScheduler(cfg *Config, registry *Registry, ledger *Ledger, clock Clock) *Scheduler {
	if clock == nil {
		clock = WallClock()
	}
	return &Scheduler{
		cfg:      cfg,
		clock:    clock,
		registry: registry,
		ledger:   ledger,
		nextID:   1,
	}
}

// Activate starts a cascade for the given detection and returns the new
// incident id. It returns as soon as the deferred transitions are
// scheduled; the incident is visible in the ledger (uncleared) before any
// timer fires. Never fails: the detection was validated at the ingestion
// boundary and every effect is an in-memory mutation.
func (s *Scheduler) Activate(d Detection) int64 {
	now := s.clock.Now()
	d.Normalize(now)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	latest := d
	s.latest = &latest
	s.mu.Unlock()

	corridorDur := s.cfg.GetCorridorDuration()
	cooldown := s.cfg.GetCooldown()

	switches := make([]SignalSwitch, 0, len(s.cfg.Intersections))
	for k, ic := range s.cfg.Intersections {
		activateAt := now.Add(s.cfg.ETAOffset(k))
		switches = append(switches, SignalSwitch{
			IntersectionID: ic.ID,
			SwitchedAt:     activateAt,
			RevertedAt:     activateAt.Add(corridorDur),
		})
	}

	inc := Incident{
		ID:               id,
		CorrelationID:    d.CorrelationID,
		TrackID:          d.TrackID,
		Zone:             d.Zone,
		Direction:        d.Direction,
		Confidence:       d.Confidence,
		DetectedAt:       d.Timestamp,
		Mode:             d.Mode,
		ReceivedAt:       d.ReceivedAt,
		Switches:         switches,
		TimeSavedSeconds: s.cfg.GetTimeSavedPerIntersection() * float64(len(s.cfg.Intersections)),
	}
	s.ledger.Append(inc)

	for k := range s.cfg.Intersections {
		s.startSignal(id, k, now, switches[k], cooldown)
	}

	// Stamp corridorClearedAt once the last intersection has fully
	// reverted to idle. The stamp targets the ledger, not a signal, so it
	// fires even when a newer cascade has overwritten signal state.
	clearedAfter := s.cfg.ETAOffset(len(s.cfg.Intersections)-1) + corridorDur + cooldown
	s.clock.AfterFunc(clearedAfter, func() {
		s.ledger.MarkCleared(id, s.clock.Now())
	})

	log.Printf("cascade %d started: zone=%s track=%d mode=%s conf=%.2f corr=%s",
		id, d.Zone, d.TrackID, d.Mode, d.Confidence, d.CorrelationID)
	return id
}

// startSignal applies the immediate transition for intersection k and
// schedules its deferred ones under a freshly claimed generation.
func (s *Scheduler) startSignal(incidentID int64, k int, now time.Time, sw SignalSwitch, cooldown time.Duration) {
	id := sw.IntersectionID
	gen := s.registry.claim(id)
	activatedAt := now
	etaSeconds := s.cfg.Intersections[k].ETAOffsetSeconds
	revertAt := sw.RevertedAt

	// The lead intersection turns green immediately; the rest hold
	// pre-clear until their scheduled activation time.
	s.registry.apply(id, gen, func(sig *Signal) {
		if k == 0 {
			sig.State = StateCorridorGreen
		} else {
			sig.State = StatePreClear
		}
		sig.ActivatedAt = &activatedAt
		sig.ETASeconds = etaSeconds
		sig.RevertAfter = &revertAt
	})

	if k > 0 {
		greenAt := sw.SwitchedAt
		s.deferTransition(incidentID, id, gen, sw.SwitchedAt.Sub(now), StateCorridorGreen, func(sig *Signal) {
			sig.State = StateCorridorGreen
			sig.ActivatedAt = &greenAt
		})
	}

	s.deferTransition(incidentID, id, gen, revertAt.Sub(now), StateCooldown, func(sig *Signal) {
		sig.State = StateCooldown
	})

	s.deferTransition(incidentID, id, gen, revertAt.Add(cooldown).Sub(now), StateIdleRed, func(sig *Signal) {
		sig.State = StateIdleRed
		sig.ActivatedAt = nil
		sig.RevertAfter = nil
	})
}

func (s *Scheduler) deferTransition(incidentID int64, signalID string, gen uint64, after time.Duration, state SignalState, fn func(*Signal)) {
	s.clock.AfterFunc(after, func() {
		applied := s.registry.apply(signalID, gen, fn)
		if !applied {
			log.Printf("cascade %d: stale %s transition for %s dropped", incidentID, state, signalID)
		}
		if s.OnTransition != nil {
			s.OnTransition(TransitionEvent{
				IncidentID:     incidentID,
				IntersectionID: signalID,
				State:          state,
				Stale:          !applied,
				At:             s.clock.Now(),
			})
		}
	})
}

// LatestDetection returns a copy of the most recently accepted detection,
// or nil if none has been accepted yet.
func (s *Scheduler) LatestDetection() *Detection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil
	}
	d := *s.latest
	return &d
}

// Snapshot is a consistent point-in-time view for observers.
type Snapshot struct {
	LatestDetection *Detection `json:"latestDetection"`
	Signals         []Signal   `json:"signals"`
	Incidents       []Incident `json:"incidents"`
	Stats           Stats      `json:"stats"`
}

// Snapshot gathers the latest detection, the ordered signal states, the
// newest n incidents, and the aggregate stats in a single fetch. Signal
// states may be observed mid-cascade; the incident behind any observed
// cascade is always present because Activate appends before mutating
// signals.
func (s *Scheduler) Snapshot(n int) Snapshot {
	return Snapshot{
		LatestDetection: s.LatestDetection(),
		Signals:         s.registry.List(),
		Incidents:       s.ledger.Recent(n),
		Stats:           s.ledger.Stats(),
	}
}
