package eventbus

import (
	"testing"
	"time"
)

func TestEventBus_PublishAndSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe("analysis.completed")

	bus.Publish("analysis.completed", "run-1")

	select {
	case evt := <-ch:
		if evt.Topic != "analysis.completed" {
			t.Errorf("expected topic 'analysis.completed', got %q", evt.Topic)
		}
		if evt.Payload != "run-1" {
			t.Errorf("expected payload 'run-1', got %v", evt.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout: expected event to be received within 100ms")
	}
}

func TestEventBus_MultipleSubscribers_AllReceive(t *testing.T) {
	bus := New()
	ch1 := bus.Subscribe("analysis.chunk")
	ch2 := bus.Subscribe("analysis.chunk")

	bus.Publish("analysis.chunk", 42)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.Payload != 42 {
				t.Errorf("subscriber %d: expected payload 42, got %v", i, evt.Payload)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestEventBus_DifferentTopics_NoInterference(t *testing.T) {
	bus := New()
	chA := bus.Subscribe("analysis.completed")
	chB := bus.Subscribe("nutrition.completed")

	bus.Publish("analysis.completed", "for-a")

	select {
	case evt := <-chA:
		if evt.Payload != "for-a" {
			t.Errorf("analysis.completed: unexpected payload %v", evt.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("analysis.completed: timeout waiting for event")
	}

	select {
	case evt := <-chB:
		t.Errorf("nutrition.completed: received unexpected event: %v", evt)
	default:
	}
}

func TestEventBus_FullBuffer_DropsAndCounts(t *testing.T) {
	bus := New()
	_ = bus.Subscribe("overflow")

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBufferSize+10; i++ {
			bus.Publish("overflow", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Publish blocked when buffer was full")
	}
	if got := bus.Dropped(); got != 10 {
		t.Fatalf("Dropped() = %d, want 10", got)
	}
}

func TestEventBus_Unsubscribe_ClosesAndStopsDelivery(t *testing.T) {
	bus := New()
	ch := bus.Subscribe("analysis.chunk")
	other := bus.Subscribe("analysis.chunk")

	bus.Unsubscribe("analysis.chunk", ch)
	bus.Publish("analysis.chunk", 1)

	if _, ok := <-ch; ok {
		t.Fatal("expected unsubscribed channel to be closed")
	}
	select {
	case evt := <-other:
		if evt.Payload != 1 {
			t.Fatalf("unexpected payload %v", evt.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("remaining subscriber did not receive the event")
	}

	// second call is a no-op
	bus.Unsubscribe("analysis.chunk", ch)
}
