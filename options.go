package corestore

import (
	"fmt"
	"time"
)

// StoreOptions configures a Store at construction. Use the With* functional
// options below rather than constructing this directly; the zero value is
// not valid (WorkerCount defaults to 1 only after New applies defaults).
type StoreOptions struct {
	AutoInit           bool
	Scheduler          Scheduler
	WorkerCount        int
	WorkerQueueSize    int
	TaskScheduler      TaskScheduler
	GraceTimeInSeconds float64
	OnFinish           func()
	ActionMiddlewares  []ActionMiddleware
	EventMiddlewares   []EventMiddleware
	Logger             Logger
	Telemetry          LifecycleObserver
	Serializer         Serializer
}

// Option mutates StoreOptions during construction.
type Option func(*StoreOptions)

func defaultOptions() *StoreOptions {
	return &StoreOptions{
		WorkerCount:        1,
		WorkerQueueSize:    4096,
		GraceTimeInSeconds: 0,
		Logger:             NewNoopLogger(),
	}
}

// WithAutoInit dispatches Init once at construction.
func WithAutoInit() Option {
	return func(o *StoreOptions) { o.AutoInit = true }
}

// WithScheduler replaces inline draining: dispatch enqueues only, and the
// supplied Scheduler is responsible for periodically calling Store.Run.
func WithScheduler(s Scheduler) Option {
	return func(o *StoreOptions) { o.Scheduler = s }
}

// WithWorkerCount sets the number of side-effect workers (>= 1).
func WithWorkerCount(n int) Option {
	return func(o *StoreOptions) { o.WorkerCount = n }
}

// WithWorkerQueueSize sets the worker pool's buffered queue capacity.
func WithWorkerQueueSize(n int) Option {
	return func(o *StoreOptions) { o.WorkerQueueSize = n }
}

// WithTaskScheduler supplies the adapter used to schedule awaitable autorun
// results onto an external event loop.
func WithTaskScheduler(t TaskScheduler) Option {
	return func(o *StoreOptions) { o.TaskScheduler = t }
}

// WithGraceTime sets the quiescence interval observed before clean_up runs
// after Finish.
func WithGraceTime(seconds float64) Option {
	return func(o *StoreOptions) { o.GraceTimeInSeconds = seconds }
}

// WithOnFinish registers the callback invoked exactly once after clean_up.
func WithOnFinish(fn func()) Option {
	return func(o *StoreOptions) { o.OnFinish = fn }
}

// WithActionMiddlewares seeds the initial action middleware chain, applied
// in the given order.
func WithActionMiddlewares(mw ...ActionMiddleware) Option {
	return func(o *StoreOptions) { o.ActionMiddlewares = append(o.ActionMiddlewares, mw...) }
}

// WithEventMiddlewares seeds the initial event middleware chain.
func WithEventMiddlewares(mw ...EventMiddleware) Option {
	return func(o *StoreOptions) { o.EventMiddlewares = append(o.EventMiddlewares, mw...) }
}

// WithLogger sets the structured logger used by store internals.
func WithLogger(l Logger) Option {
	return func(o *StoreOptions) { o.Logger = l }
}

// WithTelemetry attaches a LifecycleObserver (see corestore/telemetry) that
// receives CloudEvents for dispatch, worker, and shutdown transitions.
func WithTelemetry(obs LifecycleObserver) Option {
	return func(o *StoreOptions) { o.Telemetry = obs }
}

func (o *StoreOptions) validate() error {
	if o.WorkerCount < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, o.WorkerCount)
	}
	if o.GraceTimeInSeconds < 0 {
		return fmt.Errorf("%w: got %f", ErrInvalidGraceDuration, o.GraceTimeInSeconds)
	}
	if o.Logger == nil {
		o.Logger = NewNoopLogger()
	}
	return nil
}

func (o *StoreOptions) graceDuration() time.Duration {
	return time.Duration(o.GraceTimeInSeconds * float64(time.Second))
}
