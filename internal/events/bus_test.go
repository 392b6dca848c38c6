package events

import (
	"field-route-service/internal/domain"
	"field-route-service/internal/metrics"
	"testing"
)

func TestPublishFansOut(t *testing.T) {
	b := NewBus(nil)
	a := b.Subscribe(1)
	c := b.Subscribe(1)

	if !b.Publish(AlertCreated{Alert: domain.Alert{ID: "al1"}}) {
		t.Fatal("expected delivery to all subscribers")
	}

	for _, ch := range []<-chan AlertCreated{a, c} {
		ev := <-ch
		if ev.Alert.ID != "al1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	m := metrics.New()
	b := NewBus(m)
	ch := b.Subscribe(1)

	b.Publish(AlertCreated{Alert: domain.Alert{ID: "first"}})
	if b.Publish(AlertCreated{Alert: domain.Alert{ID: "second"}}) {
		t.Fatal("expected drop on full subscriber")
	}
	if got := m.EventsDropped.Load(); got != 1 {
		t.Fatalf("events dropped = %d", got)
	}
	if ev := <-ch; ev.Alert.ID != "first" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	b := NewBus(nil)
	ch := b.Subscribe(4)
	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	if b.Publish(AlertCreated{}) {
		t.Fatal("publish after close should report false")
	}

	late := b.Subscribe(1)
	if _, ok := <-late; ok {
		t.Fatal("subscribe after close should return a closed channel")
	}
}
