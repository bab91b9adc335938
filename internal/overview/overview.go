// Package overview derives a single read model from the latest metric
// snapshot and the active-alert counts. It holds no state of its own.
package overview

import (
	"time"

	"github.com/openestate/watchtower/internal/models"
	"github.com/openestate/watchtower/internal/monitor"
)

// AlertCounts breaks the unresolved alerts down by severity.
type AlertCounts struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// Overview is the combined system view served to operators.
type Overview struct {
	Status            monitor.Status `json:"status"`
	UptimeSeconds     int64          `json:"uptime_seconds"`
	ErrorRate         float64        `json:"error_rate"`
	AvgResponseTimeMs float64        `json:"avg_response_time_ms"`
	CPUUsage          float64        `json:"cpu_usage"`
	MemoryUsage       float64        `json:"memory_usage"`
	DBPoolUtilization float64        `json:"db_pool_utilization"`
	Alerts            AlertCounts    `json:"alerts"`
	GeneratedAt       time.Time      `json:"generated_at"`
}

// AlertCounter exposes the unresolved-alert counts the aggregator
// needs. Implemented by the alerting registry.
type AlertCounter interface {
	CountBySeverity() map[models.Severity]int
}

// Aggregator recomputes the overview per request.
type Aggregator struct {
	source  monitor.MetricSource
	health  *monitor.Broadcaster
	alerts  AlertCounter
	started time.Time
}

// NewAggregator creates an aggregator. The start time anchors the
// uptime figure.
func NewAggregator(source monitor.MetricSource, health *monitor.Broadcaster, alerts AlertCounter, started time.Time) *Aggregator {
	return &Aggregator{
		source:  source,
		health:  health,
		alerts:  alerts,
		started: started,
	}
}

// Snapshot builds the current overview.
func (a *Aggregator) Snapshot(now time.Time) Overview {
	snap := a.source.Snapshot()
	counts := a.alerts.CountBySeverity()

	value := func(name string) float64 {
		v, _ := snap.Value(name)
		return v
	}

	return Overview{
		Status:            a.health.Current(),
		UptimeSeconds:     int64(now.Sub(a.started).Seconds()),
		ErrorRate:         value(monitor.MetricErrorRate),
		AvgResponseTimeMs: value(monitor.MetricAvgLatency),
		CPUUsage:          value(monitor.MetricCPUUsage),
		MemoryUsage:       value(monitor.MetricMemoryUsage),
		DBPoolUtilization: value(monitor.MetricDBPoolUsage),
		Alerts: AlertCounts{
			Critical: counts[models.SeverityCritical],
			Warning:  counts[models.SeverityWarning],
			Info:     counts[models.SeverityInfo],
			Total:    counts[models.SeverityCritical] + counts[models.SeverityWarning] + counts[models.SeverityInfo],
		},
		GeneratedAt: now,
	}
}
