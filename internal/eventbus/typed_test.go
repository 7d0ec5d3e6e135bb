package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runEvent struct {
	ID      string
	Revenue int
}

func TestTypedBusPublishSubscribe(t *testing.T) {
	bus := NewTyped[runEvent]()
	ch := bus.Subscribe()
	bus.Publish(runEvent{ID: "r1", Revenue: 8})
	v := <-ch
	assert.Equal(t, "r1", v.ID)
	assert.Equal(t, 1, bus.Subscribers())
	bus.Unsubscribe(ch)
	assert.Equal(t, 0, bus.Subscribers())
	_, ok := <-ch
	assert.False(t, ok)
}

func TestTypedBusDropsWhenFull(t *testing.T) {
	bus := NewTyped[int]()
	ch := bus.SubscribeBuffered(1)
	bus.Publish(1)
	bus.Publish(2)
	assert.Equal(t, 1, <-ch)
	assert.Equal(t, uint64(1), bus.Dropped())
}

func TestTypedBusClose(t *testing.T) {
	bus := NewTyped[int]()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	bus.Close()
	_, ok := <-ch1
	assert.False(t, ok)
	_, ok = <-ch2
	assert.False(t, ok)

	late := bus.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscriptions after close are closed")
	bus.Publish(3)
}

func TestTypedBusUnsubscribeAfterClose(t *testing.T) {
	bus := NewTyped[float64]()
	ch := bus.Subscribe()
	bus.Close()
	require.NotPanics(t, func() { bus.Unsubscribe(ch) })
}
