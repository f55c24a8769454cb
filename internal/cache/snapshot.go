// Package cache holds the last-known state per tracked pull request
// with a time-to-live, so reads never touch the network: staleness is
// surfaced, not hidden.
package cache

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
)

const shardCount = 16

type entry struct {
	state     domain.PRState
	fetchedAt time.Time
}

type shard struct {
	mu      sync.RWMutex
	entries map[domain.TrackedKey]entry
}

// Snapshots is the engine's snapshot cache. Keys are spread over
// shards so writes to unrelated keys never contend on one lock; the
// per-shard lock covers map mutation only, never I/O. Writes are
// last-fetch-wins by arrival order, which is the documented race
// between webhook applies and poll fetches for the same key.
type Snapshots struct {
	shards [shardCount]shard
	ttl    time.Duration

	// now is swapped out in tests to step through TTL windows
	now func() time.Time
}

func New(ttl time.Duration) *Snapshots {
	c := &Snapshots{ttl: ttl, now: time.Now}
	for i := range c.shards {
		c.shards[i].entries = make(map[domain.TrackedKey]entry)
	}
	return c
}

func (c *Snapshots) shardFor(key domain.TrackedKey) *shard {
	h := fnv.New32a()
	h.Write([]byte(key.String()))
	return &c.shards[h.Sum32()%shardCount]
}

// Get returns the last known state, whether it is within TTL, and
// whether the key has ever been successfully fetched. A key with no
// entry reports unknown, not a default state.
func (c *Snapshots) Get(key domain.TrackedKey) (state domain.PRState, fresh, known bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return domain.PRState{}, false, false
	}
	return e.state, c.now().Sub(e.fetchedAt) < c.ttl, true
}

// Put overwrites unconditionally and resets the freshness window.
func (c *Snapshots) Put(key domain.TrackedKey, state domain.PRState) {
	s := c.shardFor(key)
	s.mu.Lock()
	s.entries[key] = entry{state: state, fetchedAt: c.now()}
	s.mu.Unlock()
}

// Invalidate keeps the last state but forces the next read to report
// stale, so the next refresh cycle refetches.
func (c *Snapshots) Invalidate(key domain.TrackedKey) {
	s := c.shardFor(key)
	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		e.fetchedAt = time.Time{}
		s.entries[key] = e
	}
	s.mu.Unlock()
}

// Remove drops the entry entirely; the key reads as unknown afterward.
func (c *Snapshots) Remove(key domain.TrackedKey) {
	s := c.shardFor(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Len reports the number of cached entries across all shards.
func (c *Snapshots) Len() int {
	n := 0
	for i := range c.shards {
		c.shards[i].mu.RLock()
		n += len(c.shards[i].entries)
		c.shards[i].mu.RUnlock()
	}
	return n
}
