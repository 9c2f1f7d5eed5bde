// Package events implements the in-process Event Bus (spec.md §4.11):
// a single publisher per event, many subscribers, best-effort and
// ordered per subscriber, with no persistence or replay. The bus
// itself is plain Go channels; ServeWS (ws.go) is the one optional
// transport hook an external UI shell (out of scope per spec.md §1)
// can attach to, grounded on air's websocket.go.
package events

import (
	"sync"

	"github.com/fr33n0w/rweb"
)

// Kind enumerates the four event shapes named in spec.md §4.11.
type Kind uint8

// event kinds
const (
	ServerDiscovered Kind = iota
	PagesUpdated
	HTMLReceived
	FileReceived
)

// Event is the single envelope carried by the bus; fields unused by a
// given Kind are zero.
type Event struct {
	Kind     Kind
	Peer     rweb.DestinationHash
	Name     string // presentation name (ServerDiscovered)
	Page     string // page name (HTMLReceived)
	Filename string // cache filename (HTMLReceived, FileReceived)
	Size     int    // byte size (FileReceived)
}

// Bus is a single-publisher, many-subscriber broadcaster. Each
// subscriber gets its own buffered channel so a slow reader cannot
// block publication to others (delivery is best-effort: a full
// subscriber channel drops the event rather than blocking Publish).
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subs: map[int]chan Event{}}
}

// Subscribe registers a new subscriber with the given channel buffer
// depth and returns the channel plus an unsubscribe func.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(ch)
	}
}

// Publish delivers ev to every current subscriber, dropping it for any
// subscriber whose buffer is full rather than blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
