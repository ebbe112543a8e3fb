// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package feed

import (
	"sync"
)

// DedupCache tracks event IDs that have already been broadcast. Polling uses
// overlapping trailing windows, so every record is usually seen several times;
// the cache guarantees at-most-once broadcast per event ID for the lifetime
// of an entry.
//
// The cache is bounded: when full it drops roughly the older half of its
// entries. Eviction can in principle let a very old, still-in-window event
// broadcast twice; with a capacity well above the events-per-window rate this
// does not happen in practice, and the bound is what keeps a hot feed from
// growing without limit.
type DedupCache struct {
	mu  sync.Mutex
	ids map[string]uint64
	cap int
	seq uint64
}

// NewDedupCache creates a cache holding at most capacity IDs.
// Capacity below 2 is raised to 2 so eviction always makes progress.
func NewDedupCache(capacity int) *DedupCache {
	if capacity < 2 {
		capacity = 2
	}
	return &DedupCache{
		ids: make(map[string]uint64, capacity),
		cap: capacity,
	}
}

// Claim records the ID and reports whether the caller won it. The first
// caller for an ID gets true; every later call with the same ID gets false
// until the entry is evicted. Claim is idempotent in the only way that
// matters: a claimed ID is never claimable again while cached.
func (c *DedupCache) Claim(id string) bool {
	if id == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, seen := c.ids[id]; seen {
		return false
	}

	if len(c.ids) >= c.cap {
		c.evictOldestHalf()
	}

	c.seq++
	c.ids[id] = c.seq
	return true
}

// evictOldestHalf drops the half of the entries with the lowest insertion
// sequence. Caller holds the lock.
func (c *DedupCache) evictOldestHalf() {
	cutoff := c.seq - uint64(len(c.ids)/2)
	for id, seq := range c.ids {
		if seq <= cutoff {
			delete(c.ids, id)
		}
	}
}

// Len returns the number of cached IDs.
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}
