package domain

import "time"

// Represents a stop candidate as seen at route-build time.
// A Location is an immutable snapshot; customer master data is owned elsewhere.
type Location struct {
	ID                 string
	Name               string
	Coordinates        Coordinates
	VisitMinutes       int
	Priority           int
	LastVisitAt        *time.Time
	VisitFrequencyDays int
	AvgOrderValue      float64
}

// Customer is the externally owned customer record. Coordinates are nil
// for customers that have never been geocoded.
type Customer struct {
	ID                 string
	Name               string
	Coordinates        *Coordinates
	VisitMinutes       int
	Priority           int
	LastVisitAt        *time.Time
	VisitFrequencyDays int
	AvgOrderValue      float64
}

// Location snapshots the customer as a routable stop.
// It returns false when the customer has no coordinates.
func (c Customer) Location() (Location, bool) {
	if c.Coordinates == nil {
		return Location{}, false
	}

	return Location{
		ID:                 c.ID,
		Name:               c.Name,
		Coordinates:        *c.Coordinates,
		VisitMinutes:       c.VisitMinutes,
		Priority:           c.Priority,
		LastVisitAt:        c.LastVisitAt,
		VisitFrequencyDays: c.VisitFrequencyDays,
		AvgOrderValue:      c.AvgOrderValue,
	}, true
}
