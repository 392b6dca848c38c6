package domain

import "time"

type VisitStatus string

const (
	VisitInProgress VisitStatus = "in_progress"
	VisitCompleted  VisitStatus = "completed"
)

// Visit records an agent's check-in (and optional check-out) at a customer.
type Visit struct {
	ID         string
	AgentID    string
	CustomerID string
	CheckInAt  time.Time
	CheckOutAt *time.Time
	CheckIn    *Coordinates
	Status     VisitStatus
}

// Completed reports whether the visit has a check-out time. Status alone is
// not enough.
func (v Visit) Completed() bool {
	return v.CheckOutAt != nil
}

func (v Visit) Open() bool {
	return !v.Completed()
}
