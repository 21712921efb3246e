// Package demo emits synthetic vision detections for dev mode, standing
// in for the camera detector when no video feed is available.
package demo

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/goldenhour-labs/goldenhour/internal/corridor"
	"github.com/goldenhour-labs/goldenhour/internal/ingest"
)

var zones = []string{corridor.ZoneLeft, corridor.ZoneCenter, corridor.ZoneRight}

var directions = []string{
	corridor.DirectionNorth,
	corridor.DirectionSouth,
	corridor.DirectionEast,
	corridor.DirectionWest,
}

// Generator feeds randomized detections through the ingestion gateway on
// a jittered interval.
type Generator struct {
	gateway  *ingest.Gateway
	interval time.Duration
	rng      *rand.Rand

	started   time.Time
	nextTrack int
}

func NewGenerator(gateway *ingest.Gateway, interval time.Duration, seed int64) *Generator {
	return &Generator{
		gateway:   gateway,
		interval:  interval,
		rng:       rand.New(rand.NewSource(seed)),
		started:   time.Now(),
		nextTrack: 1,
	}
}

// Run emits detections until ctx is cancelled.
func (g *Generator) Run(ctx context.Context) {
	log.Printf("demo generator running, interval=%s", g.interval)
	for {
		jitter := time.Duration(g.rng.Int63n(int64(g.interval) / 2))
		timer := time.NewTimer(g.interval/2 + jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Print("demo generator stopped")
			return
		case <-timer.C:
			d := g.next()
			res := g.gateway.Offer(d)
			if res.Accepted {
				log.Printf("demo detection track=%d zone=%s started cascade %d", d.TrackID, d.Zone, res.IncidentID)
			}
		}
	}
}

// next builds one plausible detection. Track ids increment so the
// gateway's cooldown rarely suppresses demo traffic.
func (g *Generator) next() corridor.Detection {
	track := g.nextTrack
	g.nextTrack++
	return corridor.Detection{
		Zone:       zones[g.rng.Intn(len(zones))],
		Confidence: 0.5 + g.rng.Float64()*0.49,
		Timestamp:  time.Since(g.started).Seconds(),
		TrackID:    track,
		Direction:  directions[g.rng.Intn(len(directions))],
		Velocity: corridor.Velocity{
			DX: g.rng.Float64()*20 - 10,
			DY: g.rng.Float64()*20 - 10,
		},
		Mode: corridor.ModeVision,
	}
}
