package corridor

import (
	"sync"
	"time"
)

// SignalState is the phase of one intersection signal.
type SignalState string

const (
	StateIdleRed       SignalState = "IDLE_RED"
	StatePreClear      SignalState = "PRE_CLEAR"
	StateCorridorGreen SignalState = "CORRIDOR_GREEN"
	StateCooldown      SignalState = "COOLDOWN"
)

// Signal is the current state of one intersection. Mutated only by the
// Scheduler; everyone else reads copies.
type Signal struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	State       SignalState `json:"state"`
	ActivatedAt *time.Time  `json:"activatedAt"` // when the current green/orange phase began
	ETASeconds  float64     `json:"etaSeconds"`  // offset from detection at which this signal was scheduled to turn
	RevertAfter *time.Time  `json:"revertAfter"` // when the current phase ends

	// generation identifies the cascade that last touched this signal.
	// Deferred transitions from older cascades are no-ops.
	generation uint64
}

// Registry holds the fixed, ordered set of corridor signals. It is a pure
// state holder: transition legality is the Scheduler's responsibility.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	signals map[string]*Signal
}

// NewRegistry creates one idle signal per configured intersection, in
// cascade order. The identity set never changes after construction.
func NewRegistry(cfg *Config) *Registry {
	r := &Registry{signals: make(map[string]*Signal, len(cfg.Intersections))}
	for _, ic := range cfg.Intersections {
		r.order = append(r.order, ic.ID)
		r.signals[ic.ID] = &Signal{
			ID:    ic.ID,
			Name:  ic.Name,
			State: StateIdleRed,
		}
	}
	return r
}

// Get returns a copy of the signal with the given id.
func (r *Registry) Get(id string) (Signal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.signals[id]
	if !ok {
		return Signal{}, false
	}
	return *s, true
}

// List returns copies of all signals in cascade order.
func (r *Registry) List() []Signal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Signal, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.signals[id])
	}
	return out
}

// Set overwrites the mutable fields of a signal. No transition-legality
// checks are performed here.
func (r *Registry) Set(id string, state SignalState, activatedAt *time.Time, etaSeconds float64, revertAfter *time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.signals[id]
	if !ok {
		return
	}
	s.State = state
	s.ActivatedAt = activatedAt
	s.ETASeconds = etaSeconds
	s.RevertAfter = revertAfter
}

// claim stamps the signal with a new cascade generation and returns it.
// Called once per signal when a cascade starts.
func (r *Registry) claim(id string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.signals[id]
	s.generation++
	return s.generation
}

// apply runs fn against the signal only if gen is still the signal's
// current cascade generation. Returns false for stale transitions.
func (r *Registry) apply(id string, gen uint64, fn func(*Signal)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.signals[id]
	if !ok || s.generation != gen {
		return false
	}
	fn(s)
	return true
}
