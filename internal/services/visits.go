package services

import (
	"context"
	"field-route-service/internal/domain"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type CheckInRequest struct {
	AgentID     string
	CustomerID  string
	At          time.Time
	Coordinates *domain.Coordinates
}

// CheckIn opens a visit for the agent at a known customer. An agent can hold
// only one open visit at a time.
func CheckIn(
	ctx context.Context,
	req CheckInRequest,
	customers ports.CustomerRepository,
	visits ports.VisitRepository,
) (_ domain.Visit, err error) {
	defer obs.Time(ctx, "services.CheckIn")(&err)

	agentID := strings.TrimSpace(req.AgentID)
	customerID := strings.TrimSpace(req.CustomerID)
	if agentID == "" || customerID == "" {
		return domain.Visit{}, fmt.Errorf("check in: %w: agent id and customer id are required", domain.ErrInvalidInput)
	}
	if req.At.IsZero() {
		return domain.Visit{}, fmt.Errorf("check in: %w: check-in time is required", domain.ErrInvalidInput)
	}
	if req.Coordinates != nil {
		if err := req.Coordinates.Validate(); err != nil {
			return domain.Visit{}, fmt.Errorf("check in: %w", err)
		}
	}

	found, err := customers.GetCustomers(ctx, []string{customerID})
	if err != nil {
		return domain.Visit{}, fmt.Errorf("check in: load customer: %w", err)
	}
	if len(found) == 0 {
		return domain.Visit{}, fmt.Errorf("check in: customer %q: %w", customerID, domain.ErrNotFound)
	}

	open, err := visits.OpenVisit(ctx, agentID)
	if err != nil {
		return domain.Visit{}, fmt.Errorf("check in: %w", err)
	}
	if open != nil {
		return domain.Visit{}, fmt.Errorf("check in: %w: agent %s already has open visit %s", domain.ErrInvalidInput, agentID, open.ID)
	}

	v := domain.Visit{
		ID:         uuid.NewString(),
		AgentID:    agentID,
		CustomerID: customerID,
		CheckInAt:  req.At.UTC(),
		CheckIn:    req.Coordinates,
		Status:     domain.VisitInProgress,
	}
	if err := visits.CheckIn(ctx, v); err != nil {
		return domain.Visit{}, fmt.Errorf("check in: %w", err)
	}
	return v, nil
}

// CheckOut closes an open visit.
func CheckOut(ctx context.Context, visitID string, at time.Time, visits ports.VisitRepository) (err error) {
	defer obs.Time(ctx, "services.CheckOut")(&err)

	visitID = strings.TrimSpace(visitID)
	if visitID == "" {
		return fmt.Errorf("check out: %w: visit id is required", domain.ErrInvalidInput)
	}
	if at.IsZero() {
		return fmt.Errorf("check out: %w: check-out time is required", domain.ErrInvalidInput)
	}
	if err := visits.CheckOut(ctx, visitID, at.UTC()); err != nil {
		return fmt.Errorf("check out: %w", err)
	}
	return nil
}
