package corestore

import "errors"

// Store lifecycle and state errors
var (
	ErrUninitializedStore = errors.New("corestore: store has no state yet")
	ErrAlreadyRunning     = errors.New("corestore: run is already in progress")
	ErrStoreFinished      = errors.New("corestore: store has already finished")
)

// Registry errors
var (
	ErrCollectedWeakReference = errors.New("corestore: weakly-held listener or handler was garbage collected")
	ErrAlreadyUnsubscribed    = errors.New("corestore: handle already unsubscribed")
)

// Dispatch pipeline errors
var (
	ErrReducerFailure    = errors.New("corestore: reducer failed")
	ErrMiddlewareFailure = errors.New("corestore: middleware failed")
	ErrListenerFailure   = errors.New("corestore: listener failed")
)

// Autorun / view errors
var (
	ErrSelectorAttributeError = errors.New("corestore: selector referenced missing state data")
)

// Options validation errors
var (
	ErrInvalidWorkerCount   = errors.New("corestore: worker count must be >= 1")
	ErrInvalidGraceDuration = errors.New("corestore: grace time must be >= 0")
	ErrNilReducer           = errors.New("corestore: reducer must not be nil")
)

// Worker pool errors
var (
	ErrHandlerPanic = errors.New("corestore: event handler panicked")
	ErrPoolClosed   = errors.New("corestore: worker pool is closed")
)
