package event

import (
	"sync"
	"testing"
)

func testEvent(typ Type) Event {
	return Event{SessionID: "s-1", Sequence: 1, Type: typ}
}

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus(nil)

	called := false
	id := bus.Subscribe(TypeRoundStart, func(e Event) {
		called = true
	})

	if id == "" {
		t.Error("Subscribe should return a non-empty ID")
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("Expected 1 subscription, got %d", bus.SubscriptionCount())
	}
	if called {
		t.Error("Handler should not be called until an event is published")
	}
}

func TestBus_Publish(t *testing.T) {
	bus := NewBus(nil)

	var received Event
	bus.Subscribe(TypeTurnGenerated, func(e Event) {
		received = e
	})

	bus.Publish(Event{SessionID: "s-1", Sequence: 4, Type: TypeTurnGenerated, Payload: TurnGenerated{TurnIndex: 2}})

	if received.Type != TypeTurnGenerated {
		t.Fatalf("Expected turn_generated, got %q", received.Type)
	}
	payload, ok := received.Payload.(TurnGenerated)
	if !ok || payload.TurnIndex != 2 {
		t.Errorf("unexpected payload %#v", received.Payload)
	}
}

func TestBus_PublishNoMatchingHandlers(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe(TypeVoteUpdate, func(e Event) {
		t.Error("Handler should not be called for non-matching event type")
	})

	bus.Publish(testEvent(TypeRoundEnd))
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus(nil)

	var types []Type
	bus.SubscribeAll(func(e Event) {
		types = append(types, e.Type)
	})

	expected := []Type{TypeSessionStart, TypeRoundStart, TypeSessionEnd}
	for _, typ := range expected {
		bus.Publish(testEvent(typ))
	}

	if len(types) != len(expected) {
		t.Fatalf("Expected %d events, got %d", len(expected), len(types))
	}
	for i, typ := range expected {
		if types[i] != typ {
			t.Errorf("event %d = %q, want %q", i, types[i], typ)
		}
	}
}

func TestBus_SpecificBeforeWildcard(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "wildcard") })
	bus.Subscribe(TypeRoundEnd, func(e Event) { order = append(order, "specific") })

	bus.Publish(testEvent(TypeRoundEnd))

	if len(order) != 2 || order[0] != "specific" || order[1] != "wildcard" {
		t.Errorf("order = %v, want [specific wildcard]", order)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	calls := map[string]int{}
	id1 := bus.Subscribe(TypeRoundEnd, func(e Event) { calls["one"]++ })
	bus.Subscribe(TypeRoundEnd, func(e Event) { calls["two"]++ })

	if !bus.Unsubscribe(id1) {
		t.Fatal("Unsubscribe should return true when subscription exists")
	}
	if bus.Unsubscribe(id1) {
		t.Error("second Unsubscribe should return false")
	}

	bus.Publish(testEvent(TypeRoundEnd))

	if calls["one"] != 0 || calls["two"] != 1 {
		t.Errorf("calls = %v, want one=0 two=1", calls)
	}
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe(TypeRoundStart, func(e Event) {})
	bus.Subscribe(TypeRoundEnd, func(e Event) {})
	bus.SubscribeAll(func(e Event) {})

	if bus.SubscriptionCount() != 3 {
		t.Errorf("Expected 3 subscriptions before clear, got %d", bus.SubscriptionCount())
	}

	bus.Clear()

	if bus.SubscriptionCount() != 0 {
		t.Errorf("Expected 0 subscriptions after clear, got %d", bus.SubscriptionCount())
	}
}

func TestBus_HandlerPanicRecovery(t *testing.T) {
	bus := NewBus(nil)

	calls := 0
	bus.Subscribe(TypeAudioReady, func(e Event) {
		calls++
		panic("handler panic")
	})
	bus.Subscribe(TypeAudioReady, func(e Event) {
		calls++
	})

	bus.Publish(testEvent(TypeAudioReady))

	if calls != 2 {
		t.Errorf("Expected both handlers to be called despite panic, got %d calls", calls)
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	calls := 0
	bus.Subscribe(TypeVoteUpdate, func(e Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			bus.Publish(testEvent(TypeVoteUpdate))
		})
	}
	wg.Wait()

	if calls != 100 {
		t.Errorf("Expected 100 calls, got %d", calls)
	}
}

func TestBus_UniqueIDs(t *testing.T) {
	bus := NewBus(nil)

	ids := make(map[string]bool)
	for range 100 {
		id := bus.Subscribe(TypeRoundStart, func(e Event) {})
		if ids[id] {
			t.Errorf("Duplicate subscription ID: %s", id)
		}
		ids[id] = true
	}
}
