package mesh

import (
	"sync"

	"github.com/fr33n0w/rweb"
)

// Network is a shared in-process switchboard that Loopback transports
// register with. It exists so local demos and tests can run a server
// and client peer in one process without a real Reticulum network,
// while still exercising the Transport contract end to end: announces
// propagate to every other registered Loopback, and Send delivers
// directly to the addressed peer's registered delivery callback.
type Network struct {
	mu    sync.Mutex
	peers map[rweb.DestinationHash]*Loopback
}

// NewNetwork returns an empty switchboard.
func NewNetwork() *Network {
	return &Network{peers: map[rweb.DestinationHash]*Loopback{}}
}

func (n *Network) register(l *Loopback) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peers[l.local] = l
}

func (n *Network) unregister(l *Loopback) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.peers, l.local)
}

func (n *Network) snapshot() []*Loopback {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Loopback, 0, len(n.peers))
	for _, l := range n.peers {
		out = append(out, l)
	}
	return out
}

func (n *Network) lookup(dest rweb.DestinationHash) (*Loopback, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	l, ok := n.peers[dest]
	return l, ok
}

// Loopback is the in-process reference Transport: every destination
// in the same Network is immediately reachable, so HasPath is always
// true and RequestPath is a no-op. It exists to give the Mesh Adapter
// something concrete to run against — a real deployment replaces it
// with a Transport backed by an actual LXMF/Reticulum router.
type Loopback struct {
	net   *Network
	local rweb.DestinationHash

	mu          sync.Mutex
	announceFns map[string]func(dest rweb.DestinationHash, appData []byte)
	deliveryFn  func(source rweb.DestinationHash, bodyText string, fields rweb.Fields)
}

// NewLoopback creates a Loopback bound to local and registers it with
// net so other Loopbacks on the same Network can reach it.
func NewLoopback(net *Network, local rweb.DestinationHash) *Loopback {
	l := &Loopback{
		net:         net,
		local:       local,
		announceFns: map[string]func(dest rweb.DestinationHash, appData []byte){},
	}
	net.register(l)
	return l
}

// Close removes l from its Network.
func (l *Loopback) Close() {
	l.net.unregister(l)
}

// LocalHash returns this peer's own destination hash.
func (l *Loopback) LocalHash() rweb.DestinationHash {
	return l.local
}

// HasPath is always true on a Loopback: every registered peer is
// directly reachable within the process.
func (l *Loopback) HasPath(rweb.DestinationHash) bool {
	return true
}

// RequestPath is a no-op: HasPath is already true for any destination
// a Loopback could plausibly be asked about.
func (l *Loopback) RequestPath(rweb.DestinationHash) error {
	return nil
}

// Send delivers directly to dest's registered delivery callback, if
// dest is registered on the same Network; an unknown destination is
// reported as a send failure rather than silently dropped.
func (l *Loopback) Send(dest rweb.DestinationHash, bodyText string, fields rweb.Fields) error {
	peer, ok := l.net.lookup(dest)
	if !ok {
		return rweb.ErrSendFailure
	}
	peer.mu.Lock()
	fn := peer.deliveryFn
	peer.mu.Unlock()
	if fn != nil {
		fn(l.local, bodyText, fields)
	}
	return nil
}

// Announce broadcasts displayName as app-data to every other peer
// registered on the same Network, mirroring a real substrate's
// announce propagation within this one process.
func (l *Loopback) Announce(displayName string) error {
	appData := []byte(displayName)
	for _, peer := range l.net.snapshot() {
		if peer == l {
			continue
		}
		peer.mu.Lock()
		handlers := make([]func(rweb.DestinationHash, []byte), 0, len(peer.announceFns))
		for _, fn := range peer.announceFns {
			handlers = append(handlers, fn)
		}
		peer.mu.Unlock()
		for _, fn := range handlers {
			fn(l.local, appData)
		}
	}
	return nil
}

// RegisterAnnounceHandler registers fn under aspect; Loopback ignores
// aspect filtering and calls every registered handler for every
// announce, matching the "single announce stream" shape Announce
// Filter (C3) already does its own filtering on top of.
func (l *Loopback) RegisterAnnounceHandler(aspect string, fn func(dest rweb.DestinationHash, appData []byte)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.announceFns[aspect] = fn
}

// RegisterDeliveryCallback registers fn as this peer's single delivery
// callback, replacing any previously registered one.
func (l *Loopback) RegisterDeliveryCallback(fn func(source rweb.DestinationHash, bodyText string, fields rweb.Fields)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deliveryFn = fn
}

var _ Transport = (*Loopback)(nil)
