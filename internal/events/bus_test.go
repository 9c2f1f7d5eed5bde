package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := New()
	ch1, unsub1 := b.Subscribe(4)
	defer unsub1()
	ch2, unsub2 := b.Subscribe(4)
	defer unsub2()

	b.Publish(Event{Kind: ServerDiscovered, Name: "Node"})

	select {
	case ev := <-ch1:
		assert.Equal(t, ServerDiscovered, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting on ch1")
	}

	select {
	case ev := <-ch2:
		assert.Equal(t, "Node", ev.Name)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting on ch2")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Kind: PagesUpdated})
	b.Publish(Event{Kind: PagesUpdated}) // should be dropped, not block

	require.Len(t, ch, 1)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()

	_, ok := <-ch
	assert.False(t, ok)
}
