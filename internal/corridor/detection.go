package corridor

import (
	"time"

	"github.com/google/uuid"
)

// Ingestion modes. Vision detections come from the camera detector;
// gps_fallback detections come from vehicle beacons when no camera
// coverage is available.
const (
	ModeVision      = "vision"
	ModeGPSFallback = "gps_fallback"
)

// Camera zones as reported by the detector.
const (
	ZoneLeft   = "LEFT"
	ZoneCenter = "CENTER"
	ZoneRight  = "RIGHT"
)

// Travel directions estimated from the velocity vector.
const (
	DirectionNorth      = "NORTH"
	DirectionSouth      = "SOUTH"
	DirectionEast       = "EAST"
	DirectionWest       = "WEST"
	DirectionStationary = "STATIONARY"
	DirectionUnknown    = "UNKNOWN"
)

// Velocity is the detector's per-track velocity vector in pixels/frame
// (vision) or m/s components (gps_fallback).
type Velocity struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Detection is the normalized input to the cascade engine. Confidence and
// timestamp are accepted as given; the ingestion boundary validates shape,
// not ranges.
type Detection struct {
	Zone       string   `json:"zone"`
	Confidence float64  `json:"confidence"`
	Timestamp  float64  `json:"timestamp"` // seconds since the start of the source stream
	TrackID    int      `json:"trackId"`
	Direction  string   `json:"direction"`
	Velocity   Velocity `json:"velocity"`

	Mode          string    `json:"mode"`
	ReceivedAt    time.Time `json:"receivedAt"`
	CorrelationID string    `json:"correlationId"`
}

// Normalize fills defaults for optional fields. Safe to call repeatedly.
func (d *Detection) Normalize(now time.Time) {
	if d.Zone == "" {
		d.Zone = ZoneCenter
	}
	if d.Direction == "" {
		d.Direction = DirectionUnknown
	}
	if d.Mode == "" {
		d.Mode = ModeVision
	}
	if d.ReceivedAt.IsZero() {
		d.ReceivedAt = now
	}
	if d.CorrelationID == "" {
		d.CorrelationID = uuid.New().String()
	}
}
