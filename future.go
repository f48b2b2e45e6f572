package corestore

import "sync"

// Future models Python-Redux's awaitable wrapper with await-once
// semantics: a state machine moving from pending(awaitable) to
// resolved(value), where resolution is idempotent and multiple Await
// calls observe the same result.
type Future struct {
	once   sync.Once
	done   chan struct{}
	value  any
	err    error
	closed bool
	mu     sync.Mutex
}

// NewFuture returns a pending Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(value any, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Await blocks until the future resolves and returns its value/error.
// Calling Await multiple times, concurrently or not, yields the same
// result — the await-once guarantee.
func (f *Future) Await() (any, error) {
	<-f.done
	return f.value, f.err
}

// Close marks a Future as superseded: an autorun invokes it on its prior
// Future whenever a new one replaces it, whether or not the prior one was
// already awaited or resolved. Go has no cooperative cancellation for an
// arbitrary in-flight Await, so Close only prevents a late resolution from
// being mistaken for a fresh one by callers that check Closed.
func (f *Future) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// Closed reports whether Close has been called on this Future; it does not
// distinguish a Future closed before resolving from one closed after.
func (f *Future) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
