package service

import (
	"context"
	"sync"
	"time"

	"github.com/timmy/catalogsync/internal/logger"
)

// ScheduledRunner is invoked once per day.
type ScheduledRunner interface {
	RunScheduled(ctx context.Context) error
}

// NextDailyRun returns the first hour:minute strictly after now, in now's location.
func NextDailyRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// DailyScheduler fires the scheduled import at a fixed time of day. Whether
// the run actually starts is decided by the runner.
type DailyScheduler struct {
	runner ScheduledRunner
	hour   int
	minute int
	logger *logger.Logger
	now    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDailyScheduler creates a scheduler firing at hour:minute local time.
func NewDailyScheduler(runner ScheduledRunner, hour, minute int, log *logger.Logger) *DailyScheduler {
	if log == nil {
		log = logger.GetDefault()
	}
	return &DailyScheduler{
		runner: runner,
		hour:   hour,
		minute: minute,
		logger: log.WithField(logger.FieldComponent, "daily"),
		now:    time.Now,
	}
}

// Next returns the next fire time computed from the current clock.
func (s *DailyScheduler) Next() time.Time {
	return NextDailyRun(s.now(), s.hour, s.minute)
}

// Start runs the scheduler loop until ctx is done or Stop is called.
func (s *DailyScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

// Stop ends the loop and waits for it to exit.
func (s *DailyScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *DailyScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		now := s.now()
		next := NextDailyRun(now, s.hour, s.minute)
		s.logger.Infof("Scheduled daily import at %02d:%02d, next run: %s", s.hour, s.minute, next.Format("2006-01-02 15:04:05"))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if err := s.runner.RunScheduled(ctx); err != nil {
			s.logger.WithError(err).Debug("Scheduled run did not start")
		}
	}
}
