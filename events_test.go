package rfs

import "testing"

func TestEmitterDeliversInSubscriptionOrder(t *testing.T) {
	e := NewEmitter[int]()
	var order []int
	e.Subscribe(func(v int) { order = append(order, v*10+1) })
	e.Subscribe(func(v int) { order = append(order, v*10+2) })

	e.Fire(1)

	want := []int{11, 12}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestEmitterDisposeStopsDelivery(t *testing.T) {
	e := NewEmitter[string]()
	calls := 0
	sub := e.Subscribe(func(string) { calls++ })

	e.Fire("a")
	sub.Dispose()
	e.Fire("b")

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestEmitterDisposeTwiceIsNoop(t *testing.T) {
	e := NewEmitter[int]()
	sub := e.Subscribe(func(int) {})
	sub.Dispose()
	sub.Dispose() // must not panic
}

func TestActivationEventJoinWaits(t *testing.T) {
	ev := &ActivationEvent{Scheme: "mem"}
	ran := false
	ev.Join(func() { ran = true })
	ev.wait()
	if !ran {
		t.Error("expected joined function to run before wait returns")
	}
}
