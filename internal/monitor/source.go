// Package monitor defines the contracts between the alerting core and
// the external metric and health collaborators.
package monitor

import "time"

// Canonical metric names supplied by the platform's collectors.
const (
	MetricCPUUsage    = "cpu_usage"
	MetricMemoryUsage = "memory_usage"
	MetricErrorRate   = "error_rate"
	MetricAvgLatency  = "avg_response_time"
	MetricDBPoolUsage = "db_pool_utilization"
)

// Snapshot is a point-in-time view of the operational metrics.
type Snapshot struct {
	TakenAt time.Time          `json:"taken_at"`
	Values  map[string]float64 `json:"values"`
}

// Value returns a metric value and whether it was present in the snapshot.
func (s Snapshot) Value(name string) (float64, bool) {
	v, ok := s.Values[name]
	return v, ok
}

// MetricSource supplies current numeric values per named metric. The
// concrete collectors live outside this core.
type MetricSource interface {
	Snapshot() Snapshot
}

// SourceFunc adapts a function to the MetricSource interface.
type SourceFunc func() Snapshot

// Snapshot implements MetricSource.
func (f SourceFunc) Snapshot() Snapshot { return f() }

// StaticSource is a fixed-value MetricSource, used in tests and as a
// stand-in when no collectors are wired.
type StaticSource map[string]float64

// Snapshot implements MetricSource.
func (s StaticSource) Snapshot() Snapshot {
	values := make(map[string]float64, len(s))
	for k, v := range s {
		values[k] = v
	}
	return Snapshot{TakenAt: time.Now(), Values: values}
}
