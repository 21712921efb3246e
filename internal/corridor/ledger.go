package corridor

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// SignalSwitch records one intersection's scheduled green window within an
// incident, in cascade order.
type SignalSwitch struct {
	IntersectionID string    `json:"intersectionId"`
	SwitchedAt     time.Time `json:"switchedAt"`
	RevertedAt     time.Time `json:"revertedAt"`
}

// Incident is the record of one accepted detection and its cascade.
// Immutable after creation except CorridorClearedAt, which transitions
// exactly once from nil to a timestamp.
type Incident struct {
	ID            int64   `json:"id"`
	CorrelationID string  `json:"correlationId"`
	TrackID       int     `json:"trackId"`
	Zone          string  `json:"zone"`
	Direction     string  `json:"direction"`
	Confidence    float64 `json:"confidence"`
	DetectedAt    float64 `json:"detectedAt"` // event-relative seconds from the source stream
	Mode          string  `json:"mode"`

	ReceivedAt        time.Time      `json:"receivedAt"`
	Switches          []SignalSwitch `json:"signalSwitches"`
	CorridorClearedAt *time.Time     `json:"corridorClearedAt"`
	TimeSavedSeconds  float64        `json:"timeSavedSeconds"`
}

// Stats is the aggregate fold over all retained incidents.
type Stats struct {
	TotalIncidents      int     `json:"totalIncidents"`
	TotalCleared        int     `json:"totalCleared"`
	AvgTimeSavedSeconds float64 `json:"avgTimeSavedSeconds"`
}

// Ledger is the bounded, newest-first incident history. Once the capacity
// is exceeded the lowest-id incidents are evicted first.
type Ledger struct {
	mu        sync.RWMutex
	capacity  int
	incidents []Incident // newest first
}

// NewLedger returns a ledger retaining at most capacity incidents.
func NewLedger(capacity int) *Ledger {
	if capacity < 1 {
		capacity = 1
	}
	return &Ledger{capacity: capacity}
}

// Append prepends an incident. The switch slice is copied so callers
// cannot mutate ledger state afterwards.
func (l *Ledger) Append(inc Incident) {
	inc.Switches = append([]SignalSwitch(nil), inc.Switches...)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.incidents = append([]Incident{inc}, l.incidents...)
	if len(l.incidents) > l.capacity {
		l.incidents = l.incidents[:l.capacity]
	}
}

// MarkCleared stamps CorridorClearedAt on the incident with the given id.
// A second call for the same incident, or a call for an evicted id, is a
// no-op. Returns whether the stamp was applied.
func (l *Ledger) MarkCleared(id int64, at time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.incidents {
		if l.incidents[i].ID != id {
			continue
		}
		if l.incidents[i].CorridorClearedAt != nil {
			return false
		}
		t := at
		l.incidents[i].CorridorClearedAt = &t
		return true
	}
	return false
}

// Recent returns copies of the newest n incidents, newest first.
func (l *Ledger) Recent(n int) []Incident {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n > len(l.incidents) {
		n = len(l.incidents)
	}
	if n < 0 {
		n = 0
	}
	out := make([]Incident, n)
	copy(out, l.incidents[:n])
	for i := range out {
		out[i].Switches = append([]SignalSwitch(nil), out[i].Switches...)
	}
	return out
}

// Snapshot returns copies of all retained incidents, newest first.
func (l *Ledger) Snapshot() []Incident {
	l.mu.RLock()
	n := len(l.incidents)
	l.mu.RUnlock()
	return l.Recent(n)
}

// Size returns the number of retained incidents.
func (l *Ledger) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.incidents)
}

// Stats folds over all retained incidents. AvgTimeSavedSeconds is 0 when
// the ledger is empty.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := Stats{TotalIncidents: len(l.incidents)}
	if len(l.incidents) == 0 {
		return s
	}
	saved := make([]float64, 0, len(l.incidents))
	for i := range l.incidents {
		if l.incidents[i].CorridorClearedAt != nil {
			s.TotalCleared++
		}
		saved = append(saved, l.incidents[i].TimeSavedSeconds)
	}
	s.AvgTimeSavedSeconds = stat.Mean(saved, nil)
	return s
}
