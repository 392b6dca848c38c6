package events

import (
	"field-route-service/internal/domain"
	"field-route-service/internal/metrics"
	"sync"
)

// AlertCreated is published after an alert row has been stored.
type AlertCreated struct {
	Alert domain.Alert
}

// Bus is an in-process fan-out of alert events. Publish never blocks; a full
// subscriber misses the event and the drop is counted.
type Bus struct {
	mu      sync.RWMutex
	subs    []chan AlertCreated
	closed  bool
	metrics *metrics.Registry
}

func NewBus(m *metrics.Registry) *Bus {
	if m == nil {
		m = metrics.New()
	}
	return &Bus{metrics: m}
}

func (b *Bus) Subscribe(buffer int) <-chan AlertCreated {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan AlertCreated, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish reports whether every subscriber received the event.
func (b *Bus) Publish(ev AlertCreated) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}

	delivered := true
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			delivered = false
			b.metrics.EventsDropped.Inc()
		}
	}
	return delivered
}

// Close ends every subscription. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
