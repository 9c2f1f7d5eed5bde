package discovery

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fr33n0w/rweb"
	"github.com/fr33n0w/rweb/internal/events"
	"github.com/fr33n0w/rweb/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFilter(t *testing.T) (*Filter, *registry.Registry, *events.Bus) {
	t.Helper()
	reg := registry.Load(filepath.Join(t.TempDir(), "discovered_servers.json"))
	bus := events.New()
	local := rweb.DestinationHash{}
	return New(local, reg, bus, nil), reg, bus
}

func TestHandleAnnounceDiscoversNewPeer(t *testing.T) {
	f, reg, bus := newFilter(t)
	events_, unsub := bus.Subscribe(4)
	defer unsub()

	dest, _ := rweb.ParseDestinationHash("11223344556677889900aabbccddeeff"[:32])
	f.HandleAnnounce(dest, []byte("[HTML] Node"))

	require.True(t, reg.Known(dest))
	p, _ := reg.Get(dest)
	assert.Equal(t, "Node", p.Name)
	assert.Empty(t, p.Pages)

	select {
	case ev := <-events_:
		assert.Equal(t, events.ServerDiscovered, ev.Kind)
		assert.Equal(t, "Node", ev.Name)
	case <-time.After(time.Second):
		t.Fatal("expected a server_discovered event")
	}
}

func TestHandleAnnounceIgnoresNonHTMLPeer(t *testing.T) {
	f, reg, _ := newFilter(t)
	dest, _ := rweb.ParseDestinationHash("22334455667788990011aabbccddeeff"[:32])
	f.HandleAnnounce(dest, []byte("Plain Node"))
	assert.False(t, reg.Known(dest))
}

func TestHandleAnnounceRefreshDoesNotReemit(t *testing.T) {
	f, reg, bus := newFilter(t)
	dest, _ := rweb.ParseDestinationHash("33445566778899001122aabbccddeeff"[:32])
	f.HandleAnnounce(dest, []byte("[HTML] Node"))

	events_, unsub := bus.Subscribe(4)
	defer unsub()

	f.HandleAnnounce(dest, []byte("[HTML] Node"))

	select {
	case <-events_:
		t.Fatal("did not expect a second server_discovered event")
	case <-time.After(100 * time.Millisecond):
	}

	p, _ := reg.Get(dest)
	assert.True(t, time.Since(p.LastSeen) < time.Second)
}
