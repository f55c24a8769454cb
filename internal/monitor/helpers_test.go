package monitor

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
	"github.com/JavaZeroo/gitee-monitor/internal/platform"
	"github.com/JavaZeroo/gitee-monitor/internal/ratelimit"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json"})
	require.NoError(t, err)
	return log
}

// fakeClient scripts platform responses and counts calls.
type fakeClient struct {
	mu         sync.Mutex
	fetchCalls int
	listCalls  int

	fetchFn func(owner, repo string, number int) (domain.PRState, error)
	listFn  func(owner, repo, author string) ([]int, error)
}

func (c *fakeClient) FetchPR(_ context.Context, owner, repo string, number int) (domain.PRState, error) {
	c.mu.Lock()
	c.fetchCalls++
	c.mu.Unlock()
	return c.fetchFn(owner, repo, number)
}

func (c *fakeClient) ListOpenPRs(_ context.Context, owner, repo, author string) ([]int, error) {
	c.mu.Lock()
	c.listCalls++
	c.mu.Unlock()
	if c.listFn == nil {
		return nil, nil
	}
	return c.listFn(owner, repo, author)
}

func (c *fakeClient) fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchCalls
}

// captureSink records published delta events.
type captureSink struct {
	mu     sync.Mutex
	events []domain.DeltaEvent
}

func (s *captureSink) Publish(_ context.Context, event domain.DeltaEvent) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *captureSink) all() []domain.DeltaEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DeltaEvent, len(s.events))
	copy(out, s.events)
	return out
}

// memTracked is an in-memory TrackedStore.
type memTracked struct {
	mu   sync.Mutex
	keys []domain.TrackedKey
}

func (m *memTracked) List(_ context.Context) ([]domain.TrackedKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TrackedKey, len(m.keys))
	copy(out, m.keys)
	return out, nil
}

func (m *memTracked) Remove(_ context.Context, key domain.TrackedKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			return nil
		}
	}
	return domain.ErrPRNotFound
}

// memAuthors is an in-memory AuthorStore.
type memAuthors struct {
	mu      sync.Mutex
	authors []domain.FollowedAuthor
}

func (m *memAuthors) List(_ context.Context) ([]domain.FollowedAuthor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.FollowedAuthor, len(m.authors))
	copy(out, m.authors)
	return out, nil
}

func registryOf(gitee, github platform.Client) platform.Registry {
	r := platform.Registry{}
	if gitee != nil {
		r[domain.PlatformGitee] = gitee
	}
	if github != nil {
		r[domain.PlatformGitHub] = github
	}
	return r
}

func fastLimits() ratelimit.Set {
	return ratelimit.NewSet(10000)
}

func openState(labels ...string) domain.PRState {
	s := domain.PRState{Title: "Implement async connection pool", Author: "carol", Status: domain.PRStatusOpen}
	for _, name := range labels {
		s.Labels = append(s.Labels, domain.Label{Name: name, Color: "0075ca"})
	}
	return s
}
