package corestore

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler is the external-driver collaborator from the store's options:
// when set, the store stops draining inline from dispatch and instead
// relies on the scheduler to invoke Run periodically.
type Scheduler interface {
	// Schedule arranges for callback to run roughly every interval and
	// returns a function that cancels the schedule. Implementations that
	// do not use interval (CronScheduler) document how it is interpreted.
	Schedule(callback func(), interval time.Duration) (stop func())
}

// TaskScheduler adapts awaitable autorun-body results onto an external
// event loop. The default, used when StoreOptions.TaskScheduler is
// nil, runs the task on a new goroutine.
type TaskScheduler interface {
	Schedule(task func())
}

type goroutineTaskScheduler struct{}

func (goroutineTaskScheduler) Schedule(task func()) { go task() }

// DefaultTaskScheduler returns the goroutine-per-task scheduler used when
// no TaskScheduler option is supplied.
func DefaultTaskScheduler() TaskScheduler { return goroutineTaskScheduler{} }

// TickerScheduler drives Run from a time.Ticker, the default-shaped
// scheduler for callers that want periodic draining instead of
// dispatch-inline draining.
type TickerScheduler struct{}

// NewTickerScheduler returns a Scheduler backed by time.Ticker.
func NewTickerScheduler() *TickerScheduler { return &TickerScheduler{} }

func (TickerScheduler) Schedule(callback func(), interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				callback()
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

// CronScheduler drives Run on a robfig/cron schedule instead of a fixed
// interval. The interval parameter passed to Schedule is ignored; the cron
// expression supplied at construction is authoritative.
type CronScheduler struct {
	spec string
}

// NewCronScheduler builds a Scheduler that runs callback according to spec,
// a standard five-field cron expression.
func NewCronScheduler(spec string) *CronScheduler {
	return &CronScheduler{spec: spec}
}

func (c *CronScheduler) Schedule(callback func(), _ time.Duration) (stop func()) {
	engine := cron.New()
	_, err := engine.AddFunc(c.spec, callback)
	if err != nil {
		// An invalid cron expression falls back to a no-op schedule rather
		// than panicking; callers should validate spec before construction.
		return func() {}
	}
	engine.Start()
	return func() {
		ctx := engine.Stop()
		<-ctx.Done()
	}
}
