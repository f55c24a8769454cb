package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
)

// Scheduler drives periodic full-refresh cycles. Only one cycle is
// ever in flight: ticks that elapse while a cycle runs are dropped,
// and a manual trigger either starts a cycle or joins the in-flight
// one and receives its report. Excess tick pressure is dropped, never
// queued.
type Scheduler struct {
	interval time.Duration
	runCycle func(ctx context.Context) CycleReport
	logger   *logger.Logger

	mu      sync.Mutex
	running bool
	waiters []chan CycleReport

	wg sync.WaitGroup
}

func NewScheduler(interval time.Duration, runCycle func(ctx context.Context) CycleReport, log *logger.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		runCycle: runCycle,
		logger:   log.Component("monitor/scheduler"),
	}
}

// Run loops until ctx is cancelled. An initial cycle fires
// immediately, then one per interval. On shutdown the in-flight cycle
// finishes; outstanding HTTP calls naturally bound the wait.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("poll scheduler started", "interval", s.interval)

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info("poll scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick starts a cycle unless one is already running.
func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Debug("previous cycle still running, skipping tick")
		return
	}
	s.start(ctx)
	s.mu.Unlock()
}

// TriggerRefresh joins the in-flight cycle or starts one if idle, and
// blocks until that cycle's report is available or ctx is cancelled.
func (s *Scheduler) TriggerRefresh(ctx context.Context) (CycleReport, error) {
	ch := make(chan CycleReport, 1)

	s.mu.Lock()
	s.waiters = append(s.waiters, ch)
	if !s.running {
		s.start(ctx)
	}
	s.mu.Unlock()

	select {
	case report := <-ch:
		return report, nil
	case <-ctx.Done():
		return CycleReport{}, ctx.Err()
	}
}

// start launches the cycle goroutine. Caller holds s.mu.
func (s *Scheduler) start(ctx context.Context) {
	s.running = true
	s.wg.Add(1)

	// the cycle outlives a cancelled trigger request: shutdown waits
	// for it rather than cancelling fetches mid-flight
	cycleCtx := context.WithoutCancel(ctx)

	go func() {
		defer s.wg.Done()
		report := s.runCycle(cycleCtx)

		s.mu.Lock()
		waiters := s.waiters
		s.waiters = nil
		s.running = false
		s.mu.Unlock()

		for _, w := range waiters {
			w <- report
		}
	}()
}
