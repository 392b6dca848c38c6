package domain

import "time"

// GpsSample is one position report from an agent's device.
//
// Samples form an append-only log per agent; only the latest matters for
// live status. A sample with IsVirtual set was synthesized from an open
// check-in rather than reported by a device. Stale marks a sample older than
// the freshness window, usable for history but not for live proximity.
type GpsSample struct {
	AgentID     string
	Coordinates Coordinates
	RecordedAt  time.Time
	SpeedKmh    *float64
	Heading     *float64
	AccuracyM   *float64
	IsVirtual   bool
	Stale       bool
}

// Usable reports whether the position can drive proximity decisions.
func (s *GpsSample) Usable() bool {
	return s != nil && !s.Stale
}
