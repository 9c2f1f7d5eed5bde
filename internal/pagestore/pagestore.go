// Package pagestore implements the server-side Page Store (spec.md
// §4.7): enumerating a pages directory, classifying files by
// extension, and reading their bytes back verbatim. It is grounded on
// air's gases/static.go (directory-confined file serving) for the
// basename/traversal discipline and on air's coffer.go for the
// in-memory read-through cache, here generalized via
// internal/blobcache.
package pagestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fr33n0w/rweb/internal/blobcache"
)

// Category classifies a PageEntry for the grouped index (spec.md §4.8).
type Category uint8

// page categories, in the order the index groups them
const (
	CategoryHTML Category = iota
	CategoryText
	CategoryImage
	CategoryPDF
	CategoryArchive
	CategoryOther
)

// String names a Category for logging and template headings.
func (c Category) String() string {
	switch c {
	case CategoryHTML:
		return "HTML Pages"
	case CategoryText:
		return "Text Files"
	case CategoryImage:
		return "Images"
	case CategoryPDF:
		return "Documents"
	case CategoryArchive:
		return "Archives"
	default:
		return "Other"
	}
}

// Entry is a PageEntry (spec.md §3): one file in the pages directory,
// derived live and never persisted.
type Entry struct {
	Filename  string
	Extension string
	MimeType  string
	SizeBytes int64
	Category  Category
}

type mimeEntry struct {
	mime     string
	category Category
}

// extTable is the authoritative extension -> MIME/category mapping of
// spec.md §4.7.
var extTable = map[string]mimeEntry{
	".html": {"text/html", CategoryHTML},
	".htm":  {"text/html", CategoryHTML},
	".txt":  {"text/plain", CategoryText},
	".md":   {"text/markdown", CategoryText},
	".jpg":  {"image/jpeg", CategoryImage},
	".jpeg": {"image/jpeg", CategoryImage},
	".png":  {"image/png", CategoryImage},
	".gif":  {"image/gif", CategoryImage},
	".bmp":  {"image/bmp", CategoryImage},
	".webp": {"image/webp", CategoryImage},
	".pdf":  {"application/pdf", CategoryPDF},
	".zip":  {"application/zip", CategoryArchive},
	".rar":  {"application/x-rar-compressed", CategoryArchive},
	".7z":   {"application/x-7z-compressed", CategoryArchive},
}

// Store enumerates and serves a single pages directory.
type Store struct {
	dir   string
	extra map[string]string
	cache *blobcache.Cache
}

// New returns a Store rooted at dir. extra, if non-nil, augments
// extTable with additional extension -> MIME overrides (decoded from
// config's extra_mime_types); such extensions are classified
// CategoryOther. cacheMaxBytes bounds the in-memory read-through cache.
func New(dir string, extra map[string]string, cacheMaxBytes int) *Store {
	return &Store{dir: dir, extra: extra, cache: blobcache.New(dir, cacheMaxBytes)}
}

func (s *Store) lookup(ext string) (mimeEntry, bool) {
	ext = strings.ToLower(ext)
	if e, ok := extTable[ext]; ok {
		return e, true
	}
	if mt, ok := s.extra[ext]; ok {
		return mimeEntry{mt, CategoryOther}, true
	}
	return mimeEntry{}, false
}

// List enumerates the pages directory fresh on every call (spec.md §5:
// "directory is re-scanned on every list"), including only files whose
// extension is in the supported table, sorted lexicographically
// (invariant 8 of spec.md §8).
func (s *Store) List() ([]Entry, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("pagestore: reading %s: %w", s.dir, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		ext := filepath.Ext(de.Name())
		me, ok := s.lookup(ext)
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Filename:  de.Name(),
			Extension: ext,
			MimeType:  me.mime,
			SizeBytes: info.Size(),
			Category:  me.category,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Filename < entries[j].Filename
	})
	return entries, nil
}

// ErrNotFound is returned by Read for a missing or traversal-rejected name.
var ErrNotFound = fmt.Errorf("pagestore: not found")

// Read resolves name strictly inside the pages directory — always
// basename()-ing the request first (spec.md §4.7, §8 invariant 5) — and
// returns its bytes along with the matching Entry. A name whose
// basename differs from the request, or that does not exist, or whose
// extension is unsupported, is reported as ErrNotFound; the caller
// must never distinguish "traversal" from "missing" in what it sends
// back over the wire.
func (s *Store) Read(name string) ([]byte, Entry, error) {
	base := filepath.Base(name)
	if base != name || base == "." || base == string(filepath.Separator) {
		return nil, Entry{}, ErrNotFound
	}

	me, ok := s.lookup(filepath.Ext(base))
	if !ok {
		return nil, Entry{}, ErrNotFound
	}

	full := filepath.Join(s.dir, base)
	resolvedDir, err := filepath.Abs(s.dir)
	if err != nil {
		return nil, Entry{}, ErrNotFound
	}
	resolvedFull, err := filepath.Abs(full)
	if err != nil || !strings.HasPrefix(resolvedFull, resolvedDir) {
		return nil, Entry{}, ErrNotFound
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, Entry{}, ErrNotFound
	}

	b, err := s.cache.Get(full, func() ([]byte, error) {
		return os.ReadFile(full)
	})
	if err != nil {
		return nil, Entry{}, ErrNotFound
	}

	return b, Entry{
		Filename:  base,
		Extension: filepath.Ext(base),
		MimeType:  me.mime,
		SizeBytes: info.Size(),
		Category:  me.category,
	}, nil
}

// Dir returns the root directory the Store serves.
func (s *Store) Dir() string {
	return s.dir
}
