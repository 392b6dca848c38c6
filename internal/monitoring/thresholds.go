package monitoring

import "time"

// Thresholds are the alerting limits read at the start of every check.
type Thresholds struct {
	DeviationMeters      float64
	DeviationHighMeters  float64
	DelayMinutes         float64
	DelayHighMinutes     float64
	ProximityMeters      float64
	ExtendedVisitMinutes float64
	Cooldown             time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		DeviationMeters:      500,
		DeviationHighMeters:  1000,
		DelayMinutes:         30,
		DelayHighMinutes:     60,
		ProximityMeters:      100,
		ExtendedVisitMinutes: 60,
		Cooldown:             15 * time.Minute,
	}
}

// StaticThresholds returns a source that always yields t.
func StaticThresholds(t Thresholds) func() Thresholds {
	return func() Thresholds { return t }
}
