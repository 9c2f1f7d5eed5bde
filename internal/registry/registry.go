// Package registry implements the client-side Peer Registry (spec.md
// §4.3): a persistent map of discovered HTML servers, rewritten whole
// and atomically on every mutation. Grounded on air's coffer.go for the
// "guard a map with a mutex, copy out a snapshot for readers" shape,
// generalized from an in-memory asset map to a JSON-backed persistent
// one.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fr33n0w/rweb"
)

// Peer is the client-side Peer record of spec.md §3.
type Peer struct {
	Hash     rweb.DestinationHash
	Name     string
	Pages    []string
	LastSeen time.Time
}

type onDiskPeer struct {
	Hash     string    `json:"hash"`
	Name     string    `json:"name"`
	Pages    []string  `json:"pages"`
	LastSeen time.Time `json:"last_seen"`
}

// Registry owns Peer records exclusively (spec.md §3's ownership rule)
// and persists the whole map after every mutation.
type Registry struct {
	path string

	mu    sync.RWMutex
	peers map[rweb.DestinationHash]*Peer
}

// Load reads path if present, starting with an empty registry on a
// malformed or absent file (spec.md §4.3: "do not abort").
func Load(path string) *Registry {
	r := &Registry{path: path, peers: map[rweb.DestinationHash]*Peer{}}

	b, err := os.ReadFile(path)
	if err != nil {
		return r
	}

	var onDisk []onDiskPeer
	if err := json.Unmarshal(b, &onDisk); err != nil {
		return r
	}

	for _, od := range onDisk {
		h, err := rweb.ParseDestinationHash(od.Hash)
		if err != nil {
			continue
		}
		r.peers[h] = &Peer{Hash: h, Name: od.Name, Pages: od.Pages, LastSeen: od.LastSeen}
	}
	return r
}

// Known reports whether hash is already registered, used by callers
// (the Announce Filter) to decide new-vs-refresh before calling Upsert.
func (r *Registry) Known(hash rweb.DestinationHash) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.peers[hash]
	return ok
}

// Upsert inserts or updates p in place, then persists the whole map.
func (r *Registry) Upsert(p Peer) error {
	r.mu.Lock()
	r.peers[p.Hash] = &p
	r.mu.Unlock()
	return r.persist()
}

// SetPages replaces hash's pages list atomically.
func (r *Registry) SetPages(hash rweb.DestinationHash, pages []string) error {
	r.mu.Lock()
	peer, ok := r.peers[hash]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	peer.Pages = pages
	r.mu.Unlock()
	return r.persist()
}

// Touch updates hash's last-seen timestamp without emitting a discovery
// event (the caller decides that); used for the "already known" branch
// of the Announce Filter.
func (r *Registry) Touch(hash rweb.DestinationHash, when time.Time) error {
	r.mu.Lock()
	peer, ok := r.peers[hash]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	peer.LastSeen = when
	r.mu.Unlock()
	return r.persist()
}

// Get returns a copy of the peer for hash, if known.
func (r *Registry) Get(hash rweb.DestinationHash) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[hash]
	if !ok {
		return Peer{}, false
	}
	return *p, true
}

// Forget removes hash from the registry and persists the change.
func (r *Registry) Forget(hash rweb.DestinationHash) error {
	r.mu.Lock()
	delete(r.peers, hash)
	r.mu.Unlock()
	return r.persist()
}

// Snapshot returns a stable, name-sorted view of all known peers for
// the UI shell to poll.
func (r *Registry) Snapshot() []Peer {
	r.mu.RLock()
	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, *p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// persist rewrites the whole registry to a temp file and renames it
// into place, per spec.md §5's crash-safety guidance.
func (r *Registry) persist() error {
	r.mu.RLock()
	onDisk := make([]onDiskPeer, 0, len(r.peers))
	for _, p := range r.peers {
		onDisk = append(onDisk, onDiskPeer{
			Hash:     p.Hash.String(),
			Name:     p.Name,
			Pages:    p.Pages,
			LastSeen: p.LastSeen,
		})
	}
	r.mu.RUnlock()

	sort.Slice(onDisk, func(i, j int) bool { return onDisk[i].Hash < onDisk[j].Hash })

	b, err := json.MarshalIndent(onDisk, "", "  ")
	if err != nil {
		return err
	}

	tmp := r.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
