package monitor

import (
	"sync"
	"time"
)

// DefaultRecorderCapacity bounds the in-memory snapshot history.
// At one snapshot per minute this holds a full day.
const DefaultRecorderCapacity = 1440

// Recorder keeps a bounded in-memory history of metric snapshots so
// the management API can serve the recent trend. Oldest snapshots are
// evicted once capacity is exceeded.
type Recorder struct {
	mu       sync.RWMutex
	capacity int
	entries  []Snapshot
	start    int
	count    int
}

// NewRecorder creates a recorder with the given capacity.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRecorderCapacity
	}
	return &Recorder{
		capacity: capacity,
		entries:  make([]Snapshot, capacity),
	}
}

// Record appends a snapshot, evicting the oldest when full.
func (r *Recorder) Record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := (r.start + r.count) % r.capacity
	r.entries[idx] = s
	if r.count < r.capacity {
		r.count++
	} else {
		r.start = (r.start + 1) % r.capacity
	}
}

// Since returns the snapshots taken within the given duration before
// now, oldest first.
func (r *Recorder) Since(d time.Duration, now time.Time) []Snapshot {
	cutoff := now.Add(-d)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Snapshot
	for i := 0; i < r.count; i++ {
		s := r.entries[(r.start+i)%r.capacity]
		if !s.TakenAt.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// Latest returns the most recent snapshot, if any.
func (r *Recorder) Latest() (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return Snapshot{}, false
	}
	return r.entries[(r.start+r.count-1)%r.capacity], true
}

// Len returns the number of stored snapshots.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}
