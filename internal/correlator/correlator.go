// Package correlator implements the client-side Request Correlator
// (spec.md §4.4) and its List Parser (§4.5). The correlator tracks at
// most one PendingRequest per peer, clearing it when a matching
// response shape arrives, and sweeping entries older than a TTL.
// Grounded on air's coffer.go mutex-guarded-map idiom.
package correlator

import (
	"sync"
	"time"

	"github.com/fr33n0w/rweb"
)

// Kind is the expected response shape of a PendingRequest (spec.md §3).
type Kind uint8

// pending-request kinds
const (
	KindList Kind = iota
	KindPage
	KindFile
)

// Pending is one outstanding client request.
type Pending struct {
	Peer     rweb.DestinationHash
	Kind     Kind
	PageName string // set for KindPage/KindFile
	IssuedAt time.Time
}

// Correlator is the sole mutator of PendingRequest entries.
type Correlator struct {
	ttl time.Duration

	mu      sync.Mutex
	pending map[rweb.DestinationHash]Pending
	log     *rweb.Logger
}

// New returns a Correlator that discards entries older than ttl.
func New(ttl time.Duration, log *rweb.Logger) *Correlator {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Correlator{ttl: ttl, pending: map[rweb.DestinationHash]Pending{}, log: log}
}

// Issue records a new pending request for peer, evicting and logging a
// cancellation note for any prior entry (spec.md §4.4: "at most one
// pending request per peer").
func (c *Correlator) Issue(peer rweb.DestinationHash, kind Kind, pageName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.pending[peer]; ok && c.log != nil {
		c.log.Infof("correlator: cancelling pending %d for %s in favor of new request", prev.Kind, peer)
	}

	c.pending[peer] = Pending{Peer: peer, Kind: kind, PageName: pageName, IssuedAt: time.Now()}
}

// Peek returns the pending entry for peer without clearing it.
func (c *Correlator) Peek(peer rweb.DestinationHash) (Pending, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[peer]
	return p, ok
}

// Clear removes the pending entry for peer, e.g. once a matching
// response has been delivered, or the send failed outright.
func (c *Correlator) Clear(peer rweb.DestinationHash) {
	c.mu.Lock()
	delete(c.pending, peer)
	c.mu.Unlock()
}

// Sweep discards pending entries older than the configured TTL,
// returning how many were dropped (spec.md §7's Stale policy: silently
// discard).
func (c *Correlator) Sweep() int {
	cutoff := time.Now().Add(-c.ttl)
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for peer, p := range c.pending {
		if p.IssuedAt.Before(cutoff) {
			delete(c.pending, peer)
			dropped++
		}
	}
	return dropped
}
