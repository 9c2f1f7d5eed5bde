// Package blobcache is a small read-through, invalidate-on-write byte
// cache fronting a directory on disk. It is grounded on air's coffer.go
// (github.com/aofei/air), generalized from "binary asset manager for an
// HTTP static file handler" to "binary blob manager for any
// directory-backed store" so both the server's Page Store (spec.md
// §4.7) and the client's Content Cache (§4.6) can sit on top of it.
package blobcache

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/fsnotify/fsnotify"
)

// Cache is a directory-scoped, checksum-keyed byte cache. Reads below
// maxBytes total are served from memory; a fsnotify watch, added on
// each file the first time Get reads it, evicts that entry the moment
// the underlying file changes or disappears, so external editors can
// add/remove files between requests without coordination, per spec.md §5.
type Cache struct {
	dir     string
	once    sync.Once
	cache   *fastcache.Cache
	maxBytes int
	entries sync.Map // path -> [sha256.Size]byte checksum
	watcher *fsnotify.Watcher

	mu sync.Mutex
}

// New returns a Cache rooted at dir with an in-memory ceiling of
// maxBytes. The fsnotify watcher is created lazily on first Get, the
// same way air's coffer lazily builds its fastcache.Cache.
func New(dir string, maxBytes int) *Cache {
	if maxBytes <= 0 {
		maxBytes = 16 * 1024 * 1024
	}
	return &Cache{dir: dir, maxBytes: maxBytes}
}

func (c *Cache) ensureWatcher() error {
	var err error
	c.once.Do(func() {
		c.cache = fastcache.New(c.maxBytes)
		c.watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return
		}
		go c.watchLoop()
	})
	return err
}

func (c *Cache) watchLoop() {
	for {
		select {
		case e, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.evict(e.Name)
		case _, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (c *Cache) evict(path string) {
	if v, ok := c.entries.Load(path); ok {
		sum := v.([sha256.Size]byte)
		c.cache.Del(sum[:])
		c.entries.Delete(path)
	}
}

// Get returns the cached bytes for path, reading through to disk (via
// read) on a miss and populating the cache. path must already be a
// validated, directory-confined path.
func (c *Cache) Get(path string, read func() ([]byte, error)) ([]byte, error) {
	if err := c.ensureWatcher(); err != nil {
		return nil, fmt.Errorf("blobcache: building watcher: %w", err)
	}

	if v, ok := c.entries.Load(path); ok {
		sum := v.([sha256.Size]byte)
		if b := c.cache.Get(nil, sum[:]); len(b) > 0 {
			return b, nil
		}
		c.entries.Delete(path)
	}

	b, err := read()
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(b)
	c.cache.Set(sum[:], b)
	c.entries.Store(path, sum)

	c.mu.Lock()
	_ = c.watcher.Add(path)
	c.mu.Unlock()

	return b, nil
}

// Invalidate drops path from the cache without re-reading it.
func (c *Cache) Invalidate(path string) {
	c.evict(path)
}

// Close releases the underlying watcher. Safe to call even if no Get
// has ever been issued.
func (c *Cache) Close() error {
	if c.watcher == nil {
		return nil
	}
	return c.watcher.Close()
}
