package notify

import (
	"context"
	"field-route-service/internal/events"
	"field-route-service/internal/metrics"
	"field-route-service/internal/ports"
	"log"
	"time"
)

// Dispatcher forwards AlertCreated events to a Notifier. Delivery failures
// are logged and counted; the stored alert is unaffected.
type Dispatcher struct {
	notifier ports.Notifier
	metrics  *metrics.Registry
	timeout  time.Duration
}

func NewDispatcher(n ports.Notifier, m *metrics.Registry, timeout time.Duration) *Dispatcher {
	if m == nil {
		m = metrics.New()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{notifier: n, metrics: m, timeout: timeout}
}

// Run consumes events until ctx is done or the channel closes.
func (d *Dispatcher) Run(ctx context.Context, in <-chan events.AlertCreated) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev events.AlertCreated) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.notifier.Notify(ctx, ev.Alert); err != nil {
		d.metrics.NotificationsFailed.Inc()
		log.Printf("notify alert=%s agent=%s failed: %v", ev.Alert.ID, ev.Alert.AgentID, err)
		return
	}
	d.metrics.NotificationsSent.Inc()
}
