package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/timmy/catalogsync/internal/logger"
)

// DefaultStepDelay is the pause between chained steps of a run.
const DefaultStepDelay = 2 * time.Second

// Stepper applies one batch of the running import.
type Stepper interface {
	Step(ctx context.Context) (*StepResult, error)
}

// Driver advances a run in the background: each step that leaves the run
// active schedules the next one after the step delay. Steps never overlap,
// whichever trigger invokes them.
type Driver struct {
	stepper Stepper
	delay   time.Duration
	logger  *logger.Logger
	ctx     context.Context

	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	closed bool

	stepMu sync.Mutex
	wg     sync.WaitGroup
}

// NewDriver creates a driver. Background steps run with ctx.
func NewDriver(ctx context.Context, stepper Stepper, delay time.Duration, log *logger.Logger) *Driver {
	if log == nil {
		log = logger.GetDefault()
	}
	if delay < 0 {
		delay = DefaultStepDelay
	}
	return &Driver{
		stepper: stepper,
		delay:   delay,
		logger:  log.WithField(logger.FieldComponent, "driver"),
		ctx:     ctx,
	}
}

// Kick schedules a step immediately, replacing any pending one.
func (d *Driver) Kick() {
	d.schedule(0)
}

// Cancel drops the pending step. A step already running is not interrupted
// and will not schedule a follow-up.
func (d *Driver) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.stopTimer()
}

// Pending reports whether a step is scheduled.
func (d *Driver) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Close cancels the pending step and waits for a running one to finish.
func (d *Driver) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.Cancel()
	d.wg.Wait()
}

func (d *Driver) schedule(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.stopTimer()
	d.gen++
	gen := d.gen
	d.wg.Add(1)
	d.timer = time.AfterFunc(delay, func() {
		defer d.wg.Done()
		d.fire(gen)
	})
}

// stopTimer drops the pending timer; d.mu must be held.
func (d *Driver) stopTimer() {
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	d.timer = nil
}

// fire runs a scheduled step unless it was cancelled or superseded.
func (d *Driver) fire(gen uint64) {
	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	result, err := d.runStep(d.ctx)
	if err != nil {
		if !errors.Is(err, ErrImportNotRunning) {
			d.logger.WithError(err).Error("Scheduled step failed")
		}
		return
	}
	if result.Done() {
		return
	}

	d.mu.Lock()
	current := gen == d.gen
	d.mu.Unlock()
	if current {
		d.schedule(d.delay)
	}
}

// Step runs one step now, for manual triggers. If the run stays active the
// next step is scheduled as usual.
func (d *Driver) Step(ctx context.Context) (*StepResult, error) {
	result, err := d.runStep(ctx)
	if err != nil {
		return nil, err
	}
	if !result.Done() {
		d.schedule(d.delay)
	}
	return result, nil
}

// Run steps the active run in the calling goroutine until it is no longer
// running or ctx is done, pausing the step delay between steps.
func (d *Driver) Run(ctx context.Context) (*StepResult, error) {
	var last *StepResult
	for {
		result, err := d.runStep(ctx)
		if errors.Is(err, ErrImportNotRunning) {
			return last, nil
		}
		if err != nil {
			return last, err
		}
		last = result
		if result.Done() {
			return last, nil
		}
		if d.delay > 0 {
			select {
			case <-ctx.Done():
				return last, ctx.Err()
			case <-time.After(d.delay):
			}
		} else if ctx.Err() != nil {
			return last, ctx.Err()
		}
	}
}

func (d *Driver) runStep(ctx context.Context) (*StepResult, error) {
	d.stepMu.Lock()
	defer d.stepMu.Unlock()
	return d.stepper.Step(ctx)
}
