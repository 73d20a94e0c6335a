package notify

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestSignalNotifyOrder(t *testing.T) {
	sig := NewSignal[int]()
	var got []string
	sig.Subscribe(func(int) { got = append(got, "first") })
	sig.Subscribe(func(int) { got = append(got, "second") })
	sig.Subscribe(func(int) { got = append(got, "third") })

	sig.Notify(1)
	assert.Equal(t, got, []string{"first", "second", "third"})
}

func TestSignalUnsubscribe(t *testing.T) {
	sig := NewSignal[string]()
	var calls int
	id := sig.Subscribe(func(string) { calls++ })
	sig.Subscribe(func(string) { calls++ })

	sig.Unsubscribe(id)
	sig.Notify("x")
	assert.Equal(t, calls, 1)

	// Removing twice is a no-op.
	sig.Unsubscribe(id)
	sig.Notify("y")
	assert.Equal(t, calls, 2)
}

func TestSignalSelfUnsubscribeDuringNotify(t *testing.T) {
	sig := NewSignal[struct{}]()
	var calls int
	var id int
	id = sig.Subscribe(func(struct{}) {
		calls++
		sig.Unsubscribe(id)
	})

	sig.Notify(struct{}{})
	sig.Notify(struct{}{})
	assert.Equal(t, calls, 1)
}

func TestSignalHasSubscribers(t *testing.T) {
	sig := NewSignal[int]()
	assert.Equal(t, sig.HasSubscribers(), false)

	id := sig.Subscribe(func(int) {})
	assert.Equal(t, sig.HasSubscribers(), true)

	sig.Unsubscribe(id)
	assert.Equal(t, sig.HasSubscribers(), false)
}

func TestBusRemoveAllSubscribers(t *testing.T) {
	bus := NewBus()
	var calls int
	bus.LoggedIn.Subscribe(func(struct{}) { calls++ })
	bus.Reconnecting.Subscribe(func(struct{}) { calls++ })

	bus.RemoveAllSubscribers()
	bus.LoggedIn.Notify(struct{}{})
	bus.Reconnecting.Notify(struct{}{})

	assert.Equal(t, calls, 0)
	assert.Equal(t, bus.LoggedIn.HasSubscribers(), false)
}
