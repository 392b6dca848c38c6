package monitoring

import (
	"field-route-service/internal/domain"
	"field-route-service/internal/geo"
	"time"
)

// StopClassifier derives a stop's status from today's visits and the
// agent's current position. Nothing about the status is stored.
type StopClassifier struct {
	ProximityMeters float64
	Location        *time.Location
}

// DayBounds returns [start, end) of now's calendar day in the classifier's zone.
func (c StopClassifier) DayBounds(now time.Time) (time.Time, time.Time) {
	return dayBounds(now, c.Location)
}

func dayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	t := now.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Classify returns completed when one of the agent's visits to the stop's
// customer was checked in today and checked out, active when the position is
// live and within the proximity radius, and pending otherwise.
func (c StopClassifier) Classify(
	stop domain.RouteStop,
	customer domain.Customer,
	pos *domain.GpsSample,
	visits []domain.Visit,
	now time.Time,
) domain.StopStatus {
	start, end := c.DayBounds(now)
	for _, v := range visits {
		if v.CustomerID != stop.CustomerID || !v.Completed() {
			continue
		}
		if !v.CheckInAt.Before(start) && v.CheckInAt.Before(end) {
			return domain.StopCompleted
		}
	}

	if pos.Usable() && customer.Coordinates != nil {
		if geo.DistanceMeters(pos.Coordinates, *customer.Coordinates) <= c.ProximityMeters {
			return domain.StopActive
		}
	}

	return domain.StopPending
}
