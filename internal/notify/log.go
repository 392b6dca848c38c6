package notify

import (
	"context"
	"field-route-service/internal/domain"
	"log"
)

// LogNotifier writes alerts to the process log. It is the fallback when no
// webhook is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, a domain.Alert) error {
	log.Printf("ALERT id=%s agent=%s route=%s type=%s severity=%s msg=%q",
		a.ID, a.AgentID, a.RouteID, a.Type, a.Severity, a.Message)
	return nil
}
