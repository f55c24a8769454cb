package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
)

var key = domain.TrackedKey{
	Platform: domain.PlatformGitHub,
	Owner:    "acme",
	Repo:     "gateway",
	Number:   101,
}

func openPR(labels ...string) domain.PRState {
	s := domain.PRState{Title: "Add rate limiting middleware", Author: "alice", Status: domain.PRStatusOpen}
	for _, name := range labels {
		s.Labels = append(s.Labels, domain.Label{Name: name})
	}
	return s
}

func TestGet_UnknownBeforeFirstSuccess(t *testing.T) {
	c := New(5 * time.Minute)

	_, fresh, known := c.Get(key)

	assert.False(t, known, "never fetched keys report unknown, not a default state")
	assert.False(t, fresh)
}

func TestPutThenGet_FreshWithinTTL(t *testing.T) {
	c := New(5 * time.Minute)
	c.Put(key, openPR("bug"))

	state, fresh, known := c.Get(key)

	require.True(t, known)
	assert.True(t, fresh)
	assert.Equal(t, openPR("bug"), state)
}

func TestGet_StaleAfterTTL(t *testing.T) {
	c := New(300 * time.Second)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }

	c.Put(key, openPR("bug"))

	now = base.Add(100 * time.Second)
	_, fresh, known := c.Get(key)
	require.True(t, known)
	assert.True(t, fresh, "within TTL the entry serves reads without I/O")

	now = base.Add(400 * time.Second)
	state, fresh, known := c.Get(key)
	require.True(t, known)
	assert.False(t, fresh, "after TTL staleness is surfaced, not hidden")
	assert.Equal(t, openPR("bug"), state, "stale state is still readable")
}

func TestPut_LastFetchWins(t *testing.T) {
	c := New(5 * time.Minute)

	c.Put(key, openPR("bug"))
	c.Put(key, openPR("bug", "urgent"))

	state, _, known := c.Get(key)
	require.True(t, known)
	assert.Equal(t, openPR("bug", "urgent"), state)
	assert.Equal(t, 1, c.Len(), "one entry per key, overwrites never duplicate")
}

func TestInvalidate_ForcesStaleButKeepsState(t *testing.T) {
	c := New(5 * time.Minute)
	c.Put(key, openPR("bug"))

	c.Invalidate(key)

	state, fresh, known := c.Get(key)
	require.True(t, known)
	assert.False(t, fresh)
	assert.Equal(t, openPR("bug"), state)
}

func TestRemove_KeyReadsUnknown(t *testing.T) {
	c := New(5 * time.Minute)
	c.Put(key, openPR("bug"))

	c.Remove(key)

	_, _, known := c.Get(key)
	assert.False(t, known)
	assert.Equal(t, 0, c.Len())
}

func TestConcurrentPutGetAcrossKeys(t *testing.T) {
	c := New(5 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			k := domain.TrackedKey{
				Platform: domain.PlatformGitee,
				Owner:    "acme",
				Repo:     fmt.Sprintf("repo-%d", n%8),
				Number:   n,
			}
			for j := 0; j < 100; j++ {
				c.Put(k, openPR("bug"))
				state, _, known := c.Get(k)
				if known {
					// a read must never observe partial state
					assert.Equal(t, domain.PRStatusOpen, state.Status)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 64, c.Len())
}
