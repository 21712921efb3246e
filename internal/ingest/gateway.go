// Package ingest normalizes raw detection inputs and feeds accepted ones
// to the cascade engine. It owns the per-track cooldown that keeps a
// single tracked vehicle from restarting the corridor on every frame.
package ingest

import (
	"sync"
	"time"

	"github.com/goldenhour-labs/goldenhour/internal/corridor"
)

// Result reports what the gateway did with an offered detection.
type Result struct {
	Accepted      bool   `json:"accepted"`
	IncidentID    int64  `json:"incidentId,omitempty"`
	CorrelationID string `json:"correlationId"`
	Reason        string `json:"reason,omitempty"`
}

// Gateway is the shared entry point for all detection sources (HTTP,
// MQTT beacons, demo generator). Detections for a track seen within the
// cooldown window are acknowledged but do not start a cascade.
type Gateway struct {
	sched    *corridor.Scheduler
	clock    corridor.Clock
	cooldown time.Duration

	mu       sync.Mutex
	lastSeen map[int]time.Time
}

// NewGateway wires a gateway in front of the scheduler. A nil clock
// selects the wall clock.
func NewGateway(sched *corridor.Scheduler, cooldown time.Duration, clock corridor.Clock) *Gateway {
	if clock == nil {
		clock = corridor.WallClock()
	}
	return &Gateway{
		sched:    sched,
		clock:    clock,
		cooldown: cooldown,
		lastSeen: make(map[int]time.Time),
	}
}

// Offer normalizes the detection and starts a cascade unless the track is
// still in cooldown. Track id 0 means "untracked" and is never suppressed.
func (g *Gateway) Offer(d corridor.Detection) Result {
	now := g.clock.Now()
	d.Normalize(now)

	if d.TrackID != 0 && g.cooldown > 0 {
		g.mu.Lock()
		last, seen := g.lastSeen[d.TrackID]
		if seen && now.Sub(last) < g.cooldown {
			g.mu.Unlock()
			return Result{CorrelationID: d.CorrelationID, Reason: "track cooldown"}
		}
		g.lastSeen[d.TrackID] = now
		g.prune(now)
		g.mu.Unlock()
	}

	id := g.sched.Activate(d)
	return Result{Accepted: true, IncidentID: id, CorrelationID: d.CorrelationID}
}

// prune drops cooldown entries old enough to be irrelevant so the map
// stays bounded under long-running track id churn. Caller holds g.mu.
func (g *Gateway) prune(now time.Time) {
	if len(g.lastSeen) < 1024 {
		return
	}
	horizon := now.Add(-10 * g.cooldown)
	for id, at := range g.lastSeen {
		if at.Before(horizon) {
			delete(g.lastSeen, id)
		}
	}
}
