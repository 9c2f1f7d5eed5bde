// Package historystore implements the client's Bookmarks and History
// records (spec.md §3, §5): small JSON-backed lists guarded by their
// own mutual-exclusion region and rewritten whole on each mutation,
// following the same persistence shape as internal/registry. Only the
// operations are in-scope per spec.md §1's Non-goals; the on-disk JSON
// shape is this package's own affair.
package historystore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fr33n0w/rweb"
)

// Kind classifies a HistoryEntry by what was received.
type Kind uint8

// history entry kinds
const (
	KindPage Kind = iota
	KindFile
)

func (k Kind) String() string {
	if k == KindFile {
		return "FILE"
	}
	return "PAGE"
}

// HistoryEntry is one successful receipt (spec.md §3).
type HistoryEntry struct {
	Peer         rweb.DestinationHash
	PeerName     string
	ResourceName string
	Timestamp    time.Time
	Kind         Kind
}

// Bookmark is a user-curated peer, unique by Peer (spec.md §3).
type Bookmark struct {
	Name    string
	Peer    rweb.DestinationHash
	AddedAt time.Time
}

// HistoryLimit is the default most-recent-N retention (spec.md §3:
// "N≈100").
const HistoryLimit = 100

type onDiskHistoryEntry struct {
	Peer         string    `json:"peer"`
	PeerName     string    `json:"peer_name"`
	ResourceName string    `json:"resource_name"`
	Timestamp    time.Time `json:"timestamp"`
	Kind         string    `json:"kind"`
}

type onDiskBookmark struct {
	Name    string    `json:"name"`
	Peer    string    `json:"peer_hash"`
	AddedAt time.Time `json:"added_at"`
}

// Store owns both the history log and the bookmark list, each
// guarded independently per spec.md §5.
type Store struct {
	historyPath   string
	bookmarksPath string
	limit         int

	historyMu sync.RWMutex
	history   []HistoryEntry

	bookmarksMu sync.RWMutex
	bookmarks   map[rweb.DestinationHash]Bookmark
}

// Load reads historyPath/bookmarksPath if present under storageRoot,
// starting empty on a missing or malformed file (spec.md §7's
// DecodeError policy: "log and continue"). limit caps history
// retention; zero defaults to HistoryLimit.
func Load(storageRoot string, limit int) *Store {
	if limit <= 0 {
		limit = HistoryLimit
	}
	s := &Store{
		historyPath:   filepath.Join(storageRoot, "history.json"),
		bookmarksPath: filepath.Join(storageRoot, "bookmarks.json"),
		limit:         limit,
		bookmarks:     map[rweb.DestinationHash]Bookmark{},
	}

	if b, err := os.ReadFile(s.historyPath); err == nil {
		var onDisk []onDiskHistoryEntry
		if json.Unmarshal(b, &onDisk) == nil {
			for _, od := range onDisk {
				hash, err := rweb.ParseDestinationHash(od.Peer)
				if err != nil {
					continue
				}
				kind := KindPage
				if od.Kind == "FILE" {
					kind = KindFile
				}
				s.history = append(s.history, HistoryEntry{
					Peer: hash, PeerName: od.PeerName, ResourceName: od.ResourceName,
					Timestamp: od.Timestamp, Kind: kind,
				})
			}
		}
	}

	if b, err := os.ReadFile(s.bookmarksPath); err == nil {
		var onDisk []onDiskBookmark
		if json.Unmarshal(b, &onDisk) == nil {
			for _, od := range onDisk {
				hash, err := rweb.ParseDestinationHash(od.Peer)
				if err != nil {
					continue
				}
				s.bookmarks[hash] = Bookmark{Name: od.Name, Peer: hash, AddedAt: od.AddedAt}
			}
		}
	}

	return s
}

// AppendHistory records one successful receipt, trimming to the
// configured retention limit (most-recent-N).
func (s *Store) AppendHistory(e HistoryEntry) error {
	s.historyMu.Lock()
	s.history = append(s.history, e)
	if len(s.history) > s.limit {
		s.history = s.history[len(s.history)-s.limit:]
	}
	onDisk := s.historySnapshotLocked()
	s.historyMu.Unlock()
	return persistJSON(s.historyPath, onDisk)
}

// History returns a copy of the retained history entries, oldest first.
func (s *Store) History() []HistoryEntry {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Store) historySnapshotLocked() []onDiskHistoryEntry {
	onDisk := make([]onDiskHistoryEntry, len(s.history))
	for i, e := range s.history {
		onDisk[i] = onDiskHistoryEntry{
			Peer: e.Peer.String(), PeerName: e.PeerName, ResourceName: e.ResourceName,
			Timestamp: e.Timestamp, Kind: e.Kind.String(),
		}
	}
	return onDisk
}

// AddBookmark inserts or replaces the bookmark for b.Peer (uniqueness
// by peer_hash, per spec.md §3).
func (s *Store) AddBookmark(b Bookmark) error {
	s.bookmarksMu.Lock()
	s.bookmarks[b.Peer] = b
	onDisk := s.bookmarksSnapshotLocked()
	s.bookmarksMu.Unlock()
	return persistJSON(s.bookmarksPath, onDisk)
}

// RemoveBookmark deletes the bookmark for peer, if any.
func (s *Store) RemoveBookmark(peer rweb.DestinationHash) error {
	s.bookmarksMu.Lock()
	delete(s.bookmarks, peer)
	onDisk := s.bookmarksSnapshotLocked()
	s.bookmarksMu.Unlock()
	return persistJSON(s.bookmarksPath, onDisk)
}

// Bookmarks returns a name-sorted copy of all bookmarks.
func (s *Store) Bookmarks() []Bookmark {
	s.bookmarksMu.RLock()
	defer s.bookmarksMu.RUnlock()
	out := make([]Bookmark, 0, len(s.bookmarks))
	for _, b := range s.bookmarks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) bookmarksSnapshotLocked() []onDiskBookmark {
	onDisk := make([]onDiskBookmark, 0, len(s.bookmarks))
	for _, b := range s.bookmarks {
		onDisk = append(onDisk, onDiskBookmark{Name: b.Name, Peer: b.Peer.String(), AddedAt: b.AddedAt})
	}
	return onDisk
}

// persistJSON writes v to path via write-to-temp-then-rename, per
// spec.md §5's crash-safety guidance.
func persistJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
