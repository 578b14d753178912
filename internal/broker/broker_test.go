package broker

import (
	"sync"
	"testing"
	"time"
)

func TestSubscribeAndEmit(t *testing.T) {
	b := New()
	ch := b.Subscribe("conn1")
	defer b.Unsubscribe("conn1", ch)

	b.Emit("conn1", "toast", map[string]string{"title": "hi"})

	select {
	case ev := <-ch:
		if ev.Name != "toast" {
			t.Errorf("event name = %q, want %q", ev.Name, "toast")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected event on channel")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	ch := b.Subscribe("conn1")
	b.Unsubscribe("conn1", ch)

	b.Emit("conn1", "toast", nil)

	select {
	case <-ch:
		t.Fatal("should not receive after unsubscribe")
	case <-time.After(50 * time.Millisecond):
		// success
	}
}

func TestCrossConnectionIsolation(t *testing.T) {
	b := New()
	ch1 := b.Subscribe("conn1")
	ch2 := b.Subscribe("conn2")
	defer b.Unsubscribe("conn1", ch1)
	defer b.Unsubscribe("conn2", ch2)

	b.Emit("conn1", "artists_loaded", nil)

	select {
	case <-ch1:
		// expected
	case <-time.After(100 * time.Millisecond):
		t.Fatal("conn1 subscriber should have received the event")
	}

	select {
	case <-ch2:
		t.Fatal("conn2 subscriber should not receive conn1's event")
	case <-time.After(50 * time.Millisecond):
		// expected
	}
}

func TestBroadcastReachesAllConnections(t *testing.T) {
	b := New()
	ch1 := b.Subscribe("conn1")
	ch2 := b.Subscribe("conn2")
	defer b.Unsubscribe("conn1", ch1)
	defer b.Unsubscribe("conn2", ch2)

	b.Emit(All, "personal_sources_state", nil)

	for i, ch := range []chan Event{ch1, ch2} {
		select {
		case <-ch:
			// expected
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("subscriber %d should have received broadcast", i)
		}
	}
}

func TestEventsDeliveredInOrder(t *testing.T) {
	b := New()
	ch := b.Subscribe("conn1")
	defer b.Unsubscribe("conn1", ch)

	for i := 0; i < 10; i++ {
		b.Emit("conn1", "artists_loaded", i)
	}

	for i := 0; i < 10; i++ {
		select {
		case ev := <-ch:
			if ev.Payload.(int) != i {
				t.Fatalf("event %d out of order: got payload %v", i, ev.Payload)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("missing event %d", i)
		}
	}
}

func TestSlowSubscriberDoesNotBlockEmit(t *testing.T) {
	b := New()
	ch := b.Subscribe("conn1")
	defer b.Unsubscribe("conn1", ch)

	done := make(chan struct{})
	go func() {
		// Overfill the buffer without a reader; Emit must not block.
		for i := 0; i < subscriberBuffer*2; i++ {
			b.Emit("conn1", "artists_loaded", i)
		}
		close(done)
	}()

	select {
	case <-done:
		// success
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a slow subscriber")
	}
}

func TestUnsubscribeCleansUpEmptyConnection(t *testing.T) {
	b := New()
	ch := b.Subscribe("conn1")
	b.Unsubscribe("conn1", ch)

	b.mu.Lock()
	_, exists := b.subs["conn1"]
	b.mu.Unlock()

	if exists {
		t.Fatal("expected connection entry to be removed after last unsubscribe")
	}
}

func TestEmitToNonexistentConnection(t *testing.T) {
	b := New()
	// Should not panic
	b.Emit("nonexistent", "toast", nil)
}

func TestConcurrentAccess(t *testing.T) {
	b := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := b.Subscribe("conn1")
			b.Emit("conn1", "toast", nil)
			<-ch
			b.Unsubscribe("conn1", ch)
		}()
	}

	wg.Wait()
}
