// Package discovery implements the client-side Announce Filter (spec.md
// §4.2): it watches every delivery-destination announce, recognizes the
// [HTML] capability marker, and forwards new/updated peers into the
// Peer Registry. Grounded on the teacher's "single state + non-blocking
// command" shape (spec.md §9's re-architecture note) rather than a
// bare callback touching shared state directly.
package discovery

import (
	"time"

	"github.com/fr33n0w/rweb"
	"github.com/fr33n0w/rweb/internal/events"
	"github.com/fr33n0w/rweb/internal/registry"
)

// Filter is the Announce Filter state machine. It is the sole writer
// of registry.Registry mutations driven by announces; all of its
// exported methods are safe to call from the substrate's announce
// callback goroutine.
type Filter struct {
	local rweb.DestinationHash
	reg   *registry.Registry
	bus   *events.Bus
	log   *rweb.Logger
	now   func() time.Time
}

// New returns a Filter that self-filters announces for local and
// forwards discoveries into reg and bus.
func New(local rweb.DestinationHash, reg *registry.Registry, bus *events.Bus, log *rweb.Logger) *Filter {
	return &Filter{local: local, reg: reg, bus: bus, log: log, now: time.Now}
}

// HandleAnnounce implements spec.md §4.2's five-step procedure for one
// incoming delivery-destination announce.
func (f *Filter) HandleAnnounce(dest rweb.DestinationHash, appData []byte) {
	if dest == f.local {
		return
	}

	displayName := string(appData)
	presentationName, isHTML := rweb.IsHTMLServerName(displayName)
	if !isHTML {
		return
	}

	now := f.now()

	if f.reg.Known(dest) {
		if err := f.reg.Touch(dest, now); err != nil && f.log != nil {
			f.log.Errorf("discovery: touching peer %s: %v", dest, err)
		}
		return
	}

	peer := registry.Peer{Hash: dest, Name: presentationName, LastSeen: now}
	if err := f.reg.Upsert(peer); err != nil {
		if f.log != nil {
			f.log.Errorf("discovery: registering peer %s: %v", dest, err)
		}
		return
	}

	f.bus.Publish(events.Event{
		Kind: events.ServerDiscovered,
		Peer: dest,
		Name: presentationName,
	})
}
