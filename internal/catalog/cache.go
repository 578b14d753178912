// Package catalog caches the library manager's artist list. The cache is
// shared read-only by every discovery session and replaced wholesale on
// refresh, so readers never observe a partially updated copy.
package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/resonarr/backend/internal/normalize"
)

// Entry is one library artist: the diacritic-folded display name plus the
// normalized key used as deduplication identity.
type Entry struct {
	Name string
	Key  string
}

// Lister fetches the full current artist list from the library manager.
type Lister interface {
	ListArtists(ctx context.Context) ([]string, error)
}

// Cache holds the last successfully fetched library snapshot.
// Safe for concurrent use; it never takes any session lock.
type Cache struct {
	mu      sync.RWMutex
	entries []Entry
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{}
}

// Refresh fetches the catalog from the library manager, normalizes and sorts
// it case-insensitively by display name, and replaces the cached copy
// atomically. Returns the new snapshot, or the upstream error with the cache
// left untouched.
func (c *Cache) Refresh(ctx context.Context, lister Lister) ([]Entry, error) {
	names, err := lister.ListArtists(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		folded := normalize.Fold(name)
		entries = append(entries, Entry{Name: folded, Key: strings.ToLower(folded)})
	}
	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	return c.Snapshot(), nil
}

// Snapshot returns a copy of the last successfully fetched catalog, possibly
// empty. It never makes a network call.
func (c *Cache) Snapshot() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Keys returns the set of normalized keys in the current snapshot.
func (c *Cache) Keys() map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make(map[string]struct{}, len(c.entries))
	for _, e := range c.entries {
		keys[e.Key] = struct{}{}
	}
	return keys
}

// RecordAddition appends one artist to the cache after a successful add.
// Idempotent: a name whose key is already cached is ignored.
func (c *Cache) RecordAddition(name string) {
	folded := normalize.Fold(name)
	key := strings.ToLower(folded)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.Key == key {
			return
		}
	}
	c.entries = append(c.entries, Entry{Name: folded, Key: key})
}
