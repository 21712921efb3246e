package api

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goldenhour-labs/goldenhour/internal/corridor"
)

var (
	detectionsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goldenhour_detections_received_total",
		Help: "Total number of detection POSTs received.",
	})
	detectionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goldenhour_detections_rejected_total",
		Help: "Total number of detection POSTs rejected as malformed.",
	})
	detectionsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goldenhour_detections_suppressed_total",
		Help: "Total number of detections suppressed by track cooldown.",
	})
	cascadesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "goldenhour_cascades_started_total",
		Help: "Total number of corridor cascades started.",
	})
)

// detectionRequest is the wire shape posted by the vision detector.
// Required fields use pointers so a missing field is distinguishable from
// a zero value. Confidence and timestamp are passed through as given; the
// boundary validates shape, not ranges.
type detectionRequest struct {
	Zone       *string            `json:"zone"`
	Confidence *float64           `json:"confidence"`
	Timestamp  *float64           `json:"timestamp"`
	TrackID    int                `json:"trackId"`
	Direction  string             `json:"direction"`
	Velocity   *corridor.Velocity `json:"velocity"`
}

func (s *Server) handleDetection(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	detectionsReceived.Inc()

	var req detectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		detectionsRejected.Inc()
		s.writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Zone == nil || req.Confidence == nil || req.Timestamp == nil {
		detectionsRejected.Inc()
		s.writeJSONError(w, http.StatusBadRequest, "zone, confidence and timestamp are required")
		return
	}

	d := corridor.Detection{
		Zone:       *req.Zone,
		Confidence: *req.Confidence,
		Timestamp:  *req.Timestamp,
		TrackID:    req.TrackID,
		Direction:  req.Direction,
		Mode:       corridor.ModeVision,
	}
	if req.Velocity != nil {
		d.Velocity = *req.Velocity
	}

	res := s.gateway.Offer(d)
	if res.Accepted {
		cascadesStarted.Inc()
	} else {
		detectionsSuppressed.Inc()
	}

	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write response")
		return
	}
}
