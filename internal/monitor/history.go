package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/rileyhilliard/sqlmon/internal/source"
)

// DefaultHistorySize is the number of samples kept per metric.
const DefaultHistorySize = 10

// StampLayout is the second-granularity timestamp shared by every sample
// of one fetch cycle.
const StampLayout = "2006-01-02 15:04:05"

// Sample is one fetched record. Immutable once created.
type Sample struct {
	Stamp  string        `json:"timestamp"`
	At     time.Time     `json:"-"`
	Record source.Record `json:"record"`
}

func (s Sample) clone() Sample {
	s.Record = s.Record.Clone()
	return s
}

// InstanceState holds the per-metric histories of one instance, newest
// first. All methods are safe for concurrent use; reads return copies so a
// renderer never observes a history mid-truncate.
type InstanceState struct {
	mu      sync.RWMutex
	size    int
	metrics map[string][]Sample
}

// NewInstanceState creates empty histories for the fixed metric set.
func NewInstanceState(size int) *InstanceState {
	if size <= 0 {
		size = DefaultHistorySize
	}
	s := &InstanceState{size: size}
	s.reset()
	return s
}

func (s *InstanceState) reset() {
	s.metrics = make(map[string][]Sample, len(source.Metrics))
	for _, key := range source.Keys() {
		s.metrics[key] = []Sample{}
	}
}

// Insert puts a sample at the front of the metric's history and drops the
// oldest beyond the cap. It is a no-op, returning false, when the newest
// sample already carries the same stamp or the key is not a known metric.
func (s *InstanceState) Insert(key string, sample Sample) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist, ok := s.metrics[key]
	if !ok {
		return false
	}
	if len(hist) > 0 && hist[0].Stamp == sample.Stamp {
		return false
	}

	next := make([]Sample, 0, min(len(hist)+1, s.size))
	next = append(next, sample.clone())
	for _, old := range hist {
		if len(next) == s.size {
			break
		}
		next = append(next, old)
	}
	s.metrics[key] = next
	return true
}

// NewestStamp returns the stamp of the metric's most recent sample.
func (s *InstanceState) NewestStamp(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hist := s.metrics[key]
	if len(hist) == 0 {
		return "", false
	}
	return hist[0].Stamp, true
}

// History returns a copy of one metric's samples, newest first.
func (s *InstanceState) History(key string) []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySamples(s.metrics[key])
}

// Len returns the number of samples held for a metric.
func (s *InstanceState) Len(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.metrics[key])
}

// Snapshot returns a consistent copy of every metric's history.
func (s *InstanceState) Snapshot() map[string][]Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]Sample, len(s.metrics))
	for key, hist := range s.metrics {
		out[key] = copySamples(hist)
	}
	return out
}

// Clear resets every metric to an empty history. The key set is rebuilt
// from the fixed metric table, not from prior contents.
func (s *InstanceState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func copySamples(in []Sample) []Sample {
	out := make([]Sample, len(in))
	for i, sample := range in {
		out[i] = sample.clone()
	}
	return out
}

// Histories maps instance names to their state for one session.
// Entries are created on first reference and live as long as the session.
type Histories struct {
	mu        sync.Mutex
	size      int
	instances map[string]*InstanceState
}

// NewHistories creates an empty set of instance histories.
func NewHistories(size int) *Histories {
	return &Histories{
		size:      size,
		instances: make(map[string]*InstanceState),
	}
}

// For returns the state for an instance, creating it if needed.
func (h *Histories) For(instance string) *InstanceState {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, ok := h.instances[instance]
	if !ok {
		st = NewInstanceState(h.size)
		h.instances[instance] = st
	}
	return st
}

// Instances returns the names with state, sorted.
func (h *Histories) Instances() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.instances))
	for name := range h.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
