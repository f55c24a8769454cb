package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JavaZeroo/gitee-monitor/internal/cache"
	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/notify"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
	"github.com/JavaZeroo/gitee-monitor/internal/platform"
	"github.com/JavaZeroo/gitee-monitor/internal/ratelimit"
)

// PoolConfig carries the fetch fan-out knobs.
type PoolConfig struct {
	MaxWorkers   int
	Parallel     bool
	RetryBackoff time.Duration
}

// Pool fans fetches out across the tracked keys, bounded by the
// configured in-flight count and gated per platform by the shared rate
// limiter. Failures are isolated per key: one slow or broken pull
// request never blocks progress on the others.
type Pool struct {
	clients platform.Registry
	limits  ratelimit.Set
	cache   *cache.Snapshots
	sink    notify.Sink
	logger  *logger.Logger

	maxWorkers int
	parallel   bool
	backoff    time.Duration

	now func() time.Time
}

func NewPool(
	clients platform.Registry,
	limits ratelimit.Set,
	snapshots *cache.Snapshots,
	sink notify.Sink,
	cfg PoolConfig,
	log *logger.Logger,
) *Pool {
	return &Pool{
		clients:    clients,
		limits:     limits,
		cache:      snapshots,
		sink:       sink,
		logger:     log.Component("monitor/pool"),
		maxWorkers: cfg.MaxWorkers,
		parallel:   cfg.Parallel,
		backoff:    cfg.RetryBackoff,
		now:        time.Now,
	}
}

// RefreshAll refreshes every key whose cached state is no longer
// fresh. With parallel processing disabled the same per-key policy
// runs sequentially, which keeps behavior deterministic for tests and
// constrained environments.
func (p *Pool) RefreshAll(ctx context.Context, keys []domain.TrackedKey, rep *reporter) {
	if !p.parallel {
		for _, key := range keys {
			p.refreshOne(ctx, key, rep)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(p.maxWorkers)
	for _, key := range keys {
		g.Go(func() error {
			p.refreshOne(ctx, key, rep)
			return nil
		})
	}
	// tasks never return errors, failures land in the report
	_ = g.Wait()
}

func (p *Pool) refreshOne(ctx context.Context, key domain.TrackedKey, rep *reporter) {
	if _, fresh, _ := p.cache.Get(key); fresh {
		rep.skipped()
		return
	}
	if rep.platformIsFailed(key.Platform) {
		rep.skipped()
		return
	}

	client, err := p.clients.For(key.Platform)
	if err != nil {
		rep.failure(key, err)
		return
	}

	state, err := p.fetch(ctx, client, key)
	switch {
	case err == nil:
		prev, _ := p.prior(key)
		p.cache.Put(key, state)
		for _, event := range domain.Diff(key, prev, state, p.now()) {
			p.sink.Publish(ctx, event)
		}
		rep.refreshed()

	case errors.Is(err, domain.ErrPRNotFound):
		prev, _ := p.prior(key)
		p.cache.Remove(key)
		p.sink.Publish(ctx, domain.DeltaEvent{
			Key:        key,
			Kind:       domain.DeltaPRRemoved,
			Before:     prev,
			ObservedAt: p.now(),
		})
		rep.removed(key)
		p.logger.Info("pr no longer accessible, marking for removal", "key", key.String())

	case errors.Is(err, domain.ErrAuth):
		rep.platformFailed(key.Platform, err)
		p.logger.Error("platform auth failed, aborting its portion of the cycle",
			"platform", key.Platform,
			"error", err,
		)

	default:
		// transient after one retry, or platform-side throttling:
		// keep the stale entry and report
		rep.failure(key, err)
		p.logger.Warn("refresh failed, keeping stale snapshot",
			"key", key.String(),
			"error", err,
		)
	}
}

func (p *Pool) prior(key domain.TrackedKey) (*domain.PRState, bool) {
	prev, _, known := p.cache.Get(key)
	if !known {
		return nil, false
	}
	return &prev, true
}

// fetch gates the call on the platform's limiter and retries exactly
// once, after a short fixed backoff, when the failure is transient.
func (p *Pool) fetch(ctx context.Context, client platform.Client, key domain.TrackedKey) (domain.PRState, error) {
	limiter := p.limits.For(key.Platform)

	if err := limiter.Acquire(ctx); err != nil {
		return domain.PRState{}, err
	}
	state, err := client.FetchPR(ctx, key.Owner, key.Repo, key.Number)
	if err == nil || !platform.IsRetryable(err) {
		return state, err
	}

	select {
	case <-ctx.Done():
		return domain.PRState{}, fmt.Errorf("%w: %v", domain.ErrTransient, ctx.Err())
	case <-time.After(p.backoff):
	}

	if err := limiter.Acquire(ctx); err != nil {
		return domain.PRState{}, err
	}
	return client.FetchPR(ctx, key.Owner, key.Repo, key.Number)
}
