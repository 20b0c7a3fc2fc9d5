/*
scheduler.go - Periodic iCal refresh

PURPOSE:
  Keeps imported calendars current by refreshing every subscribed feed on
  a fixed interval.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Refreshes once immediately on start
  - A failing feed is logged and retried on the next tick; the other
    feeds are still refreshed

CONFIGURATION:
  - CheckInterval: How often to refresh (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewICalRefreshScheduler(coord)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RefreshICal endpoint (manual refresh)
  - coordinator/ical.go: RefreshAllICal
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"
)

// Refresher is the part of the coordinator the scheduler drives.
type Refresher interface {
	RefreshAllICal(ctx context.Context) error
}

// ICalRefreshScheduler refreshes calendar feeds in the background.
type ICalRefreshScheduler struct {
	Refresher     Refresher
	CheckInterval time.Duration
	Enabled       bool

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastRun time.Time
}

// NewICalRefreshScheduler creates a new scheduler.
func NewICalRefreshScheduler(r Refresher) *ICalRefreshScheduler {
	return &ICalRefreshScheduler{
		Refresher:     r,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *ICalRefreshScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.CheckInterval <= 0 {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker.C, s.stop)

	log.Printf("[Scheduler] Started with check interval: %v", s.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight refresh.
func (s *ICalRefreshScheduler) Stop() {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	s.ticker = nil
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("[Scheduler] Stopped")
}

func (s *ICalRefreshScheduler) run(ticks <-chan time.Time, stop <-chan struct{}) {
	defer s.wg.Done()

	// Run immediately on start
	s.refresh()

	for {
		select {
		case <-ticks:
			s.refresh()
		case <-stop:
			return
		}
	}
}

func (s *ICalRefreshScheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout())
	defer cancel()

	start := time.Now()
	if err := s.Refresher.RefreshAllICal(ctx); err != nil {
		log.Printf("[Scheduler] Calendar refresh finished with errors: %v", err)
	} else {
		log.Printf("[Scheduler] Calendars refreshed in %v", time.Since(start).Round(time.Millisecond))
	}

	s.mu.Lock()
	s.lastRun = start
	s.mu.Unlock()
}

// timeout keeps one refresh from running into the next tick.
func (s *ICalRefreshScheduler) timeout() time.Duration {
	if s.CheckInterval > 0 {
		return s.CheckInterval
	}
	return time.Hour
}

// RunNow triggers an immediate refresh (for testing/admin).
func (s *ICalRefreshScheduler) RunNow() {
	s.refresh()
}

// LastRun returns when the last refresh started (zero if never).
func (s *ICalRefreshScheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// NextRunTime returns when the next scheduled refresh will occur.
func (s *ICalRefreshScheduler) NextRunTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun.IsZero() {
		return time.Now()
	}
	return s.lastRun.Add(s.CheckInterval)
}
