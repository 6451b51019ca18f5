// Package scheduler fires named one-shot and periodic callbacks. Callbacks
// re-validate live state when they fire; cancellation by name is best-effort
// and racing a firing job is safe as long as the callback double-checks.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Scheduler interface {
	// RunOnce schedules fn after delay. A second schedule under the same
	// name replaces the first.
	RunOnce(name string, delay time.Duration, fn func(ctx context.Context))
	// RunPeriodic runs fn every interval, first after the initial delay,
	// until the scheduler stops or the job is cancelled.
	RunPeriodic(name string, initial, interval time.Duration, fn func(ctx context.Context))
	// RunDaily runs fn once a day at the given UTC hour.
	RunDaily(name string, hourUTC int, fn func(ctx context.Context))
	// Cancel removes a scheduled job. Returns false when no such job exists.
	Cancel(name string) bool
}

type TimerScheduler struct {
	logger *slog.Logger

	mu   sync.Mutex
	jobs map[string]func() // job name -> stop func

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTimerScheduler(logger *slog.Logger) *TimerScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &TimerScheduler{
		logger: logger,
		jobs:   make(map[string]func()),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *TimerScheduler) RunOnce(name string, delay time.Duration, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replaceLocked(name)

	timer := time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.jobs, name)
		s.mu.Unlock()

		if s.ctx.Err() != nil {
			return
		}
		fn(s.ctx)
	})
	s.jobs[name] = func() { timer.Stop() }
	s.logger.Debug("Scheduled one-shot job", "name", name, "delay", delay)
}

func (s *TimerScheduler) RunPeriodic(name string, initial, interval time.Duration, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replaceLocked(name)

	jobCtx, stop := context.WithCancel(s.ctx)
	s.jobs[name] = stop

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(initial)
		defer timer.Stop()
		select {
		case <-jobCtx.Done():
			return
		case <-timer.C:
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		fn(jobCtx)
		for {
			select {
			case <-jobCtx.Done():
				return
			case <-ticker.C:
				fn(jobCtx)
			}
		}
	}()
	s.logger.Debug("Scheduled periodic job", "name", name, "interval", interval)
}

func (s *TimerScheduler) RunDaily(name string, hourUTC int, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replaceLocked(name)

	jobCtx, stop := context.WithCancel(s.ctx)
	s.jobs[name] = stop

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			timer := time.NewTimer(untilNextHourUTC(time.Now(), hourUTC))
			select {
			case <-jobCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
				fn(jobCtx)
			}
		}
	}()
	s.logger.Debug("Scheduled daily job", "name", name, "hour_utc", hourUTC)
}

func (s *TimerScheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	stop, ok := s.jobs[name]
	if !ok {
		return false
	}
	stop()
	delete(s.jobs, name)
	s.logger.Debug("Cancelled job", "name", name)
	return true
}

// Shutdown cancels every job and waits for running periodic loops to exit.
func (s *TimerScheduler) Shutdown() {
	s.cancel()
	s.mu.Lock()
	for name, stop := range s.jobs {
		stop()
		delete(s.jobs, name)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *TimerScheduler) replaceLocked(name string) {
	if stop, ok := s.jobs[name]; ok {
		stop()
		delete(s.jobs, name)
	}
}

func untilNextHourUTC(now time.Time, hour int) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
