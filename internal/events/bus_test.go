package events

import (
	"errors"
	"testing"
	"time"
)

func waitForEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublish_DeliversToTypeSubscriber(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 1)
	bus.Subscribe(EventDefaultsUpdated, func(ev Event) { got <- ev })

	bus.Publish(Event{
		Type: EventDefaultsUpdated,
		Data: map[string]interface{}{"domain": "circuit_breaker"},
	})

	ev := waitForEvent(t, got)
	if ev.Data["domain"] != "circuit_breaker" {
		t.Errorf("domain = %v, want circuit_breaker", ev.Data["domain"])
	}
	if ev.Timestamp.IsZero() {
		t.Error("Publish should fill in a missing timestamp")
	}
}

func TestPublish_SkipsOtherTypes(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 1)
	bus.Subscribe(EventDefaultsReset, func(ev Event) { got <- ev })

	bus.Publish(Event{Type: EventDefaultsUpdated})

	select {
	case <-got:
		t.Error("subscriber for DEFAULTS_RESET received a DEFAULTS_UPDATED event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishUserLogout_CarriesUserID(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 1)
	bus.Subscribe(EventUserLogout, func(ev Event) { got <- ev })

	bus.PublishUserLogout("user-42")

	ev := waitForEvent(t, got)
	if ev.Data["user_id"] != "user-42" {
		t.Errorf("user_id = %v, want user-42", ev.Data["user_id"])
	}
}

func TestPublishError_CarriesSourceAndError(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 1)
	bus.SubscribeAll(func(ev Event) { got <- ev })

	bus.PublishError("defaults-watch", "reload failed", errors.New("no such file"))

	ev := waitForEvent(t, got)
	if ev.Type != EventError {
		t.Errorf("type = %s, want %s", ev.Type, EventError)
	}
	if ev.Data["source"] != "defaults-watch" {
		t.Errorf("source = %v, want defaults-watch", ev.Data["source"])
	}
	if ev.Data["error"] != "no such file" {
		t.Errorf("error = %v, want no such file", ev.Data["error"])
	}
}
