// Package fragment memoizes parsed HTML templates.
//
// A Cache maps an exact template string to a detached master fragment parsed
// from it once. The master never leaves the cache: every read hands out a deep
// copy, so callers may attach or mutate what they get back freely.
package fragment

import (
	"fmt"
	"sort"
	"sync"

	"github.com/iedon/htmlfrag/dom"
)

// ParseFunc turns a template string into a fresh fragment.
type ParseFunc func(template string) (*dom.Fragment, error)

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Entries  int    `json:"entries"`
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Bypasses uint64 `json:"bypasses"`
}

// Cache is a process-local store of parsed templates. The zero value is not
// usable; construct one with New.
type Cache struct {
	mu      sync.RWMutex
	parse   ParseFunc
	entries map[string]*dom.Fragment

	hits     uint64
	misses   uint64
	bypasses uint64
}

// New constructs an empty cache that parses misses with parse. A nil parse
// falls back to dom.ParseFragment.
func New(parse ParseFunc) *Cache {
	if parse == nil {
		parse = dom.ParseFragment
	}
	return &Cache{parse: parse, entries: make(map[string]*dom.Fragment)}
}

// GetOrCreate returns a copy of the fragment cached under template, parsing
// and storing it first when absent. The boolean reports a cache hit.
// Parse errors are returned as-is and leave the cache untouched.
func (c *Cache) GetOrCreate(template string) (*dom.Fragment, bool, error) {
	c.mu.Lock()
	if master, ok := c.entries[template]; ok {
		c.hits++
		c.mu.Unlock()
		return master.Clone(), true, nil
	}
	c.mu.Unlock()

	parsed, err := c.parse(template)
	if err != nil {
		return nil, false, err
	}
	if parsed == nil {
		return nil, false, fmt.Errorf("parse %q: no fragment produced", template)
	}

	c.mu.Lock()
	master, ok := c.entries[template]
	if ok {
		// Lost a race with another miss; keep the stored master.
		c.hits++
	} else {
		master = parsed
		c.entries[template] = master
		c.misses++
	}
	c.mu.Unlock()

	return master.Clone(), ok, nil
}

// Lookup returns a copy of the cached fragment without populating the cache.
func (c *Cache) Lookup(template string) (*dom.Fragment, bool) {
	c.mu.RLock()
	master, ok := c.entries[template]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return master.Clone(), true
}

// Contains reports whether template has an entry.
func (c *Cache) Contains(template string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[template]
	return ok
}

// Bypass records a build that skipped the cache.
func (c *Cache) Bypass() {
	c.mu.Lock()
	c.bypasses++
	c.mu.Unlock()
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the cached template strings in lexical order.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.entries))
	for key := range c.entries {
		out = append(out, key)
	}
	c.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Stats snapshots the counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Entries:  len(c.entries),
		Hits:     c.hits,
		Misses:   c.misses,
		Bypasses: c.bypasses,
	}
}

// Clear drops every entry and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*dom.Fragment)
	c.hits, c.misses, c.bypasses = 0, 0, 0
	c.mu.Unlock()
}
