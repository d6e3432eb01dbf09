package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func received(ch <-chan struct{}) bool {
	select {
	case _, ok := <-ch:
		return ok
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

func TestBroadcaster_NotifyReachesEverySubscriber(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()
	a, unsubA := b.Subscribe()
	c, unsubC := b.Subscribe()
	defer unsubA()
	defer unsubC()

	b.Notify()
	assert.True(t, received(a))
	assert.True(t, received(c))
}

func TestBroadcaster_SignalsCoalesce(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < 10; i++ {
		b.Notify()
	}
	assert.True(t, received(ch))
	assert.False(t, received(ch), "pending signals collapse into one")
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	require.Equal(t, 1, b.Subscribers())

	unsub()
	unsub()
	assert.Equal(t, 0, b.Subscribers())

	_, ok := <-ch
	assert.False(t, ok, "channel is closed")

	// notifying without subscribers is fine
	b.Notify()
}

func TestBroadcaster_Close(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	b.Close()
	b.Close()

	_, ok := <-ch
	assert.False(t, ok)
	unsub()

	late, lateUnsub := b.Subscribe()
	defer lateUnsub()
	_, ok = <-late
	assert.False(t, ok)
}

func TestBroadcaster_ConcurrentUse(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch, unsub := b.Subscribe()
			b.Notify()
			<-ch
			unsub()
		}()
		go func() {
			defer wg.Done()
			b.Notify()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, b.Subscribers())
}
