package monitor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JavaZeroo/gitee-monitor/internal/cache"
	"github.com/JavaZeroo/gitee-monitor/internal/domain"
)

func newTestEngine(t *testing.T, tracked *memTracked, authors *memAuthors, client *fakeClient, snapshots *cache.Snapshots, sink *captureSink) *Engine {
	t.Helper()
	log := testLogger(t)
	registry := registryOf(client, nil)
	limits := fastLimits()
	tracker := NewTracker(tracked, authors, registry, limits, log)
	pool := NewPool(registry, limits, snapshots, sink, PoolConfig{
		MaxWorkers:   4,
		Parallel:     false,
		RetryBackoff: time.Millisecond,
	}, log)
	return NewEngine(tracker, pool, snapshots, sink, time.Hour, log)
}

func TestEngineCycleEstablishesBaseline(t *testing.T) {
	tracked := &memTracked{keys: []domain.TrackedKey{key(1), key(2)}}
	client := &fakeClient{
		fetchFn: func(string, string, int) (domain.PRState, error) {
			return openState("ready"), nil
		},
	}
	sink := &captureSink{}
	engine := newTestEngine(t, tracked, &memAuthors{}, client, cache.New(time.Hour), sink)

	_, ok := engine.LastCycle()
	assert.False(t, ok)

	report := engine.runCycle(context.Background())

	assert.Equal(t, 2, report.Resolved)
	assert.Equal(t, 2, report.Refreshed)
	assert.Empty(t, sink.all())

	last, ok := engine.LastCycle()
	require.True(t, ok)
	assert.Equal(t, report.Refreshed, last.Refreshed)
}

func TestEngineGetSnapshotIsOrderedAndMarksUnknown(t *testing.T) {
	tracked := &memTracked{keys: []domain.TrackedKey{key(20), key(3)}}
	client := &fakeClient{
		fetchFn: func(_, _ string, number int) (domain.PRState, error) {
			if number == 20 {
				return domain.PRState{}, fmt.Errorf("%w: 502", domain.ErrTransient)
			}
			return openState("ready"), nil
		},
	}
	engine := newTestEngine(t, tracked, &memAuthors{}, client, cache.New(time.Hour), &captureSink{})

	engine.runCycle(context.Background())

	snapshots := engine.GetSnapshot()
	require.Len(t, snapshots, 2)

	// lexicographic by the rendered key, so #20 sorts before #3
	assert.Equal(t, key(20), snapshots[0].Key)
	assert.Equal(t, key(3), snapshots[1].Key)

	assert.Nil(t, snapshots[0].State)
	assert.False(t, snapshots[0].Fresh)

	require.NotNil(t, snapshots[1].State)
	assert.True(t, snapshots[1].Fresh)
	assert.Equal(t, domain.PRStatusOpen, snapshots[1].State.Status)
}

func TestEngineCyclePersistsRemovals(t *testing.T) {
	tracked := &memTracked{keys: []domain.TrackedKey{key(1), key(2)}}
	client := &fakeClient{
		fetchFn: func(_, _ string, number int) (domain.PRState, error) {
			if number == 2 {
				return domain.PRState{}, fmt.Errorf("%w: gone", domain.ErrPRNotFound)
			}
			return openState(), nil
		},
	}
	engine := newTestEngine(t, tracked, &memAuthors{}, client, cache.New(time.Hour), &captureSink{})

	report := engine.runCycle(context.Background())
	require.Equal(t, []domain.TrackedKey{key(2)}, report.Removed)

	remaining, err := tracked.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.TrackedKey{key(1)}, remaining)

	snapshots := engine.GetSnapshot()
	require.Len(t, snapshots, 1)
	assert.Equal(t, key(1), snapshots[0].Key)
}

func TestEngineIngestWebhookPublishesDelta(t *testing.T) {
	tracked := &memTracked{keys: []domain.TrackedKey{key(1)}}
	client := &fakeClient{
		fetchFn: func(string, string, int) (domain.PRState, error) {
			return openState("needs-review"), nil
		},
	}
	sink := &captureSink{}
	engine := newTestEngine(t, tracked, &memAuthors{}, client, cache.New(time.Hour), sink)

	engine.runCycle(context.Background())
	require.Empty(t, sink.all())

	next := openState("approved")
	engine.IngestWebhook(context.Background(), domain.WebhookEvent{Key: key(1), State: &next})

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.DeltaLabelsChanged, events[0].Kind)
	assert.Equal(t, key(1), events[0].Key)
}

func TestEngineIgnoresWebhookForUnmonitoredPR(t *testing.T) {
	tracked := &memTracked{keys: []domain.TrackedKey{key(1)}}
	client := &fakeClient{
		fetchFn: func(string, string, int) (domain.PRState, error) {
			return openState(), nil
		},
	}
	sink := &captureSink{}
	snapshots := cache.New(time.Hour)
	engine := newTestEngine(t, tracked, &memAuthors{}, client, snapshots, sink)

	engine.runCycle(context.Background())

	stranger := openState("spam")
	engine.IngestWebhook(context.Background(), domain.WebhookEvent{Key: key(999), State: &stranger})

	assert.Empty(t, sink.all())
	_, _, known := snapshots.Get(key(999))
	assert.False(t, known)
}

func TestEngineIngestWebhookRemoval(t *testing.T) {
	tracked := &memTracked{keys: []domain.TrackedKey{key(1)}}
	client := &fakeClient{
		fetchFn: func(string, string, int) (domain.PRState, error) {
			return openState(), nil
		},
	}
	sink := &captureSink{}
	snapshots := cache.New(time.Hour)
	engine := newTestEngine(t, tracked, &memAuthors{}, client, snapshots, sink)

	engine.runCycle(context.Background())

	engine.IngestWebhook(context.Background(), domain.WebhookEvent{Key: key(1), Removed: true})

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.DeltaPRRemoved, events[0].Kind)
	require.NotNil(t, events[0].Before)

	_, _, known := snapshots.Get(key(1))
	assert.False(t, known)
}
