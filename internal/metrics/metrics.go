package metrics

import "go.uber.org/atomic"

// Registry holds the process counters exposed on /metrics.
type Registry struct {
	SamplesIngested     atomic.Int64
	PollCycles          atomic.Int64
	ChecksFailed        atomic.Int64
	AlertsRaised        atomic.Int64
	AlertsSuppressed    atomic.Int64
	NotificationsSent   atomic.Int64
	NotificationsFailed atomic.Int64
	EventsDropped       atomic.Int64
}

func New() *Registry { return &Registry{} }

func (r *Registry) Snapshot() map[string]int64 {
	return map[string]int64{
		"gps_samples_ingested":  r.SamplesIngested.Load(),
		"monitor_poll_cycles":   r.PollCycles.Load(),
		"monitor_checks_failed": r.ChecksFailed.Load(),
		"alerts_raised":         r.AlertsRaised.Load(),
		"alerts_suppressed":     r.AlertsSuppressed.Load(),
		"notifications_sent":    r.NotificationsSent.Load(),
		"notifications_failed":  r.NotificationsFailed.Load(),
		"events_dropped":        r.EventsDropped.Load(),
	}
}
