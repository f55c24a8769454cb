// Package ratelimit paces outbound platform calls. One limiter per
// platform is shared process-wide by every worker and by tracking-set
// resolution, so the configured calls-per-second budget holds no
// matter how many tasks are in flight.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
)

// Limiter is a token bucket refilling at the configured rate with a
// burst of one, so behavior stays predictable under the default
// configuration. Acquire never fails, it only delays; waiters are
// served in FIFO order.
type Limiter struct {
	bucket *rate.Limiter
}

func New(perSecond float64) *Limiter {
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// Acquire blocks until the budget allows one more call. The only error
// case is context cancellation, surfaced as transient so callers leave
// the stale cache entry alone.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.bucket.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter wait: %v", domain.ErrTransient, err)
	}
	return nil
}

// Set holds the process-wide limiter for each platform.
type Set map[domain.Platform]*Limiter

// NewSet builds limiters for both platforms at the same configured
// rate.
func NewSet(perSecond float64) Set {
	return Set{
		domain.PlatformGitee:  New(perSecond),
		domain.PlatformGitHub: New(perSecond),
	}
}

// For returns the limiter for the platform. Keys are validated before
// reaching the engine, so lookups never miss.
func (s Set) For(p domain.Platform) *Limiter {
	return s[p]
}
