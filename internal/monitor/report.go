package monitor

import (
	"sync"
	"time"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
)

// CycleReport summarizes one full poll cycle. Every failure shows up
// somewhere in it: per-key failures keep their stale cache entries,
// platform errors mean that platform's portion of the cycle was
// aborted and needs reconfiguration, resolve errors name followed
// authors that could not be expanded this cycle.
type CycleReport struct {
	Started        time.Time                  `json:"started"`
	Finished       time.Time                  `json:"finished"`
	Resolved       int                        `json:"resolved"`
	Refreshed      int                        `json:"refreshed"`
	Skipped        int                        `json:"skipped"`
	Removed        []domain.TrackedKey        `json:"removed,omitempty"`
	Failures       map[string]string          `json:"failures,omitempty"`
	PlatformErrors map[domain.Platform]string `json:"platform_errors,omitempty"`
	ResolveErrors  []string                   `json:"resolve_errors,omitempty"`
}

// reporter accumulates a CycleReport from concurrently running fetch
// tasks. It also tracks which platforms have hit an auth failure so
// remaining work for them can be skipped mid-cycle.
type reporter struct {
	mu     sync.Mutex
	report CycleReport
	failed map[domain.Platform]struct{}
}

func newReporter(now time.Time) *reporter {
	return &reporter{
		report: CycleReport{
			Started:        now,
			Failures:       make(map[string]string),
			PlatformErrors: make(map[domain.Platform]string),
		},
		failed: make(map[domain.Platform]struct{}),
	}
}

func (r *reporter) setResolved(n int) {
	r.mu.Lock()
	r.report.Resolved = n
	r.mu.Unlock()
}

func (r *reporter) skipped() {
	r.mu.Lock()
	r.report.Skipped++
	r.mu.Unlock()
}

func (r *reporter) refreshed() {
	r.mu.Lock()
	r.report.Refreshed++
	r.mu.Unlock()
}

func (r *reporter) removed(key domain.TrackedKey) {
	r.mu.Lock()
	r.report.Removed = append(r.report.Removed, key)
	r.mu.Unlock()
}

func (r *reporter) failure(key domain.TrackedKey, err error) {
	r.mu.Lock()
	r.report.Failures[key.String()] = err.Error()
	r.mu.Unlock()
}

func (r *reporter) platformFailed(p domain.Platform, err error) {
	r.mu.Lock()
	r.failed[p] = struct{}{}
	r.report.PlatformErrors[p] = err.Error()
	r.mu.Unlock()
}

func (r *reporter) platformIsFailed(p domain.Platform) bool {
	r.mu.Lock()
	_, ok := r.failed[p]
	r.mu.Unlock()
	return ok
}

func (r *reporter) resolveError(msg string) {
	r.mu.Lock()
	r.report.ResolveErrors = append(r.report.ResolveErrors, msg)
	r.mu.Unlock()
}

func (r *reporter) finish(now time.Time) CycleReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Finished = now
	return r.report
}
