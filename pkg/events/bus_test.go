package events

import (
	"testing"
)

func TestSubscribeAndEmit(t *testing.T) {
	bus := NewBus(nil)

	var got []Event
	bus.Subscribe(MessageSent, func(evt Event) {
		got = append(got, evt)
	})

	bus.Emit(MessageSent, "test", map[string]any{"deviceId": "dev-1"})
	bus.Emit(MessageFailed, "test", nil) // different type, not delivered

	if len(got) != 1 {
		t.Fatalf("delivered %d events, want 1", len(got))
	}
	evt := got[0]
	if evt.Type != MessageSent || evt.Source != "test" {
		t.Errorf("event = %+v, want message.sent from test", evt)
	}
	if evt.Timestamp.IsZero() {
		t.Error("event timestamp not set")
	}
	data := evt.Data.(map[string]any)
	if data["deviceId"] != "dev-1" {
		t.Errorf("data = %v, want deviceId dev-1", data)
	}
}

func TestMultipleSubscribersInOrder(t *testing.T) {
	bus := NewBus(nil)

	var order []int
	for i := 0; i < 3; i++ {
		n := i
		bus.Subscribe(DeviceAdded, func(Event) {
			order = append(order, n)
		})
	}

	bus.Emit(DeviceAdded, "test", nil)

	if len(order) != 3 {
		t.Fatalf("delivered to %d handlers, want 3", len(order))
	}
	for i, n := range order {
		if n != i {
			t.Errorf("delivery order = %v, want registration order", order)
			break
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	unsubscribe := bus.Subscribe(DeviceRemoved, func(Event) { calls++ })

	bus.Emit(DeviceRemoved, "test", nil)
	unsubscribe()
	bus.Emit(DeviceRemoved, "test", nil)

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
	if n := bus.SubscriberCount(DeviceRemoved); n != 0 {
		t.Errorf("SubscriberCount = %d, want 0", n)
	}

	// Double unsubscribe is harmless.
	unsubscribe()
}

func TestPanickingHandlerIsolated(t *testing.T) {
	bus := NewBus(nil)

	var after bool
	bus.Subscribe(SimulationStarted, func(Event) {
		panic("handler exploded")
	})
	bus.Subscribe(SimulationStarted, func(Event) {
		after = true
	})

	bus.Emit(SimulationStarted, "test", nil)

	if !after {
		t.Error("handler after the panicking one was not invoked")
	}
}

func TestEmitWithNoSubscribers(t *testing.T) {
	bus := NewBus(nil)
	// Must not panic or block.
	bus.Emit(MetricsUpdated, "test", nil)
}
