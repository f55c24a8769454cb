package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/JavaZeroo/gitee-monitor/internal/cache"
	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/notify"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
)

// Engine is the monitoring facade the HTTP layer talks to. It owns the
// poll scheduler, the resolved working set of the most recent cycle
// and the webhook shortcut into cache plus delta detection.
type Engine struct {
	tracker *Tracker
	pool    *Pool
	cache   *cache.Snapshots
	sink    notify.Sink
	sched   *Scheduler
	logger  *logger.Logger

	now func() time.Time

	mu          sync.RWMutex
	resolved    []domain.TrackedKey
	resolvedSet map[domain.TrackedKey]struct{}
	lastCycle   CycleReport
	hasCycle    bool
}

func NewEngine(
	tracker *Tracker,
	pool *Pool,
	snapshots *cache.Snapshots,
	sink notify.Sink,
	pollInterval time.Duration,
	log *logger.Logger,
) *Engine {
	e := &Engine{
		tracker:     tracker,
		pool:        pool,
		cache:       snapshots,
		sink:        sink,
		logger:      log.Component("monitor/engine"),
		now:         time.Now,
		resolvedSet: make(map[domain.TrackedKey]struct{}),
	}
	e.sched = NewScheduler(pollInterval, e.runCycle, log)
	return e
}

// Run drives the poll loop until ctx is cancelled; the in-flight cycle
// finishes before Run returns.
func (e *Engine) Run(ctx context.Context) {
	e.sched.Run(ctx)
}

// TriggerRefresh starts a cycle or joins the running one.
func (e *Engine) TriggerRefresh(ctx context.Context) (CycleReport, error) {
	return e.sched.TriggerRefresh(ctx)
}

// LastCycle returns the most recent cycle report, if any cycle has
// completed yet.
func (e *Engine) LastCycle() (CycleReport, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastCycle, e.hasCycle
}

// runCycle is the scheduler's unit of work: resolve the working set,
// refresh it through the pool, persist NotFound removals and publish
// the new view.
func (e *Engine) runCycle(ctx context.Context) CycleReport {
	rep := newReporter(e.now())

	keys := e.tracker.Resolve(ctx, rep)
	rep.setResolved(len(keys))

	e.pool.RefreshAll(ctx, keys, rep)

	report := rep.finish(e.now())

	gone := make(map[domain.TrackedKey]struct{}, len(report.Removed))
	for _, key := range report.Removed {
		gone[key] = struct{}{}
		if err := e.tracker.tracked.Remove(ctx, key); err != nil && !errors.Is(err, domain.ErrPRNotFound) {
			e.logger.Warn("failed to drop removed pr from store",
				"key", key.String(),
				"error", err,
			)
		}
	}

	current := make([]domain.TrackedKey, 0, len(keys))
	currentSet := make(map[domain.TrackedKey]struct{}, len(keys))
	for _, key := range keys {
		if _, removed := gone[key]; removed {
			continue
		}
		current = append(current, key)
		currentSet[key] = struct{}{}
	}

	e.mu.Lock()
	e.resolved = current
	e.resolvedSet = currentSet
	e.lastCycle = report
	e.hasCycle = true
	e.mu.Unlock()

	e.logger.Info("poll cycle finished",
		"resolved", report.Resolved,
		"refreshed", report.Refreshed,
		"skipped", report.Skipped,
		"removed", len(report.Removed),
		"failures", len(report.Failures),
		"duration", report.Finished.Sub(report.Started),
	)

	return report
}

// GetSnapshot returns the current tracked view in a stable order:
// every key of the last resolved set with its cached state and
// freshness. Keys never fetched report no state and fresh=false.
func (e *Engine) GetSnapshot() []domain.Snapshot {
	e.mu.RLock()
	keys := make([]domain.TrackedKey, len(e.resolved))
	copy(keys, e.resolved)
	e.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	snapshots := make([]domain.Snapshot, 0, len(keys))
	for _, key := range keys {
		state, fresh, known := e.cache.Get(key)
		snap := domain.Snapshot{Key: key, Fresh: fresh}
		if known {
			s := state
			snap.State = &s
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots
}

// IngestWebhook applies a single validated event directly to the cache
// and runs delta detection, outside the regular poll cadence. The
// per-key write ordering against a concurrent poll fetch is
// last-write-wins; a webhook may be overwritten by a slightly stale
// poll result within one cache TTL, which is accepted.
func (e *Engine) IngestWebhook(ctx context.Context, event domain.WebhookEvent) {
	e.mu.RLock()
	_, monitored := e.resolvedSet[event.Key]
	e.mu.RUnlock()
	if !monitored {
		e.logger.Debug("webhook for unmonitored pr ignored", "key", event.Key.String())
		return
	}

	prev, _, known := e.cache.Get(event.Key)
	var before *domain.PRState
	if known {
		before = &prev
	}

	if event.Removed {
		e.cache.Remove(event.Key)
		if known {
			e.sink.Publish(ctx, domain.DeltaEvent{
				Key:        event.Key,
				Kind:       domain.DeltaPRRemoved,
				Before:     before,
				ObservedAt: e.now(),
			})
		}
		e.logger.Info("pr removed via webhook", "key", event.Key.String())
		return
	}

	e.cache.Put(event.Key, *event.State)
	for _, delta := range domain.Diff(event.Key, before, *event.State, e.now()) {
		e.sink.Publish(ctx, delta)
	}

	e.logger.Debug("webhook applied",
		"key", event.Key.String(),
		"status", string(event.State.Status),
	)
}
