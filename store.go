// Package corestore implements a reactive, event-aware state store modeled
// on the Redux architecture and adapted as an in-process concurrency
// primitive: a single-writer dispatch engine over an immutable state value,
// a worker pool for side-effect event handlers, and a memoized autorun/view
// layer for derived values. See doc.go for an overview.
package corestore

import (
	"sync"
	"time"
	"weak"

	"github.com/google/uuid"

	"github.com/corestorelabs/corestore/internal/refs"
	"github.com/corestorelabs/corestore/internal/registry"
	"github.com/corestorelabs/corestore/internal/workerpool"
)

// Listener receives every new state the store publishes, in
// reducer-completion order.
type Listener func(state any)

// EventHandler receives one event, invoked on a worker goroutine.
type EventHandler func(event Event)

// EventSubscription is returned by SubscribeEvent. Holding it strongly
// pins a weakly-registered handler alive: the registry only holds a weak
// reference to the owner the handler was registered against, while this
// record holds the handler itself (and, transitively, anything it closes
// over) strongly.
type EventSubscription struct {
	Handler     EventHandler
	unsubscribe func()
	once        sync.Once
}

// Unsubscribe removes the handler. Idempotent.
func (es *EventSubscription) Unsubscribe() {
	es.once.Do(es.unsubscribe)
}

// Store is the façade composing the dispatch engine, registry, worker
// pool, and autorun engine described by the design.
type Store struct {
	id string

	mu       sync.Mutex
	state    any
	hasState bool
	running  bool

	reducer Reducer

	actionQueue []Action
	eventQueue  []Event

	listeners     *registry.Registry[Listener]
	eventHandlers *registry.Keyed[EventHandler]

	actionMW *middlewareChain[ActionMiddleware]
	eventMW  *middlewareChain[EventMiddleware]

	pool          *workerpool.Pool
	taskScheduler TaskScheduler

	scheduler     Scheduler
	schedulerStop func()

	opts *StoreOptions

	finishRequested bool
	finishedOnce    sync.Once
	finishedCh      chan struct{}

	autorunsMu sync.Mutex
	autoruns   []*Autorun
}

// New constructs a Store around reducer, applying options in order.
// reducer must not be nil.
func New(reducer Reducer, options ...Option) (*Store, error) {
	if reducer == nil {
		return nil, ErrNilReducer
	}
	opts := defaultOptions()
	for _, opt := range options {
		opt(opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	s := &Store{
		id:            uuid.New().String(),
		reducer:       reducer,
		listeners:     registry.New[Listener](),
		eventHandlers: registry.NewKeyed[EventHandler](),
		actionMW:      newMiddlewareChain[ActionMiddleware](),
		eventMW:       newMiddlewareChain[EventMiddleware](),
		opts:          opts,
		finishedCh:    make(chan struct{}),
	}
	for _, mw := range opts.ActionMiddlewares {
		s.actionMW.register(mw)
	}
	for _, mw := range opts.EventMiddlewares {
		s.eventMW.register(mw)
	}

	s.pool = workerpool.New(opts.WorkerQueueSize, func(r any) {
		s.opts.Logger.Error("event handler panicked", "recovered", r)
		emitLifecycle(s.opts.Telemetry, s.opts.Logger, newLifecycleEvent(s.id, lifecycleHandlerPanic, map[string]any{"recovered": r}))
	})
	s.pool.Start(opts.WorkerCount)
	emitLifecycle(s.opts.Telemetry, s.opts.Logger, newLifecycleEvent(s.id, lifecycleWorkerStarted, map[string]any{"count": opts.WorkerCount}))

	s.taskScheduler = opts.TaskScheduler
	if s.taskScheduler == nil {
		s.taskScheduler = DefaultTaskScheduler()
	}

	s.scheduler = opts.Scheduler
	if s.scheduler != nil {
		s.schedulerStop = s.scheduler.Schedule(func() { _ = s.Run() }, 0)
	}

	if opts.AutoInit {
		if err := s.Dispatch(Init{}); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Subscribe registers a strongly-held state listener and returns an
// idempotent unsubscribe function.
func (s *Store) Subscribe(listener Listener) (unsubscribe func()) {
	id := uuid.New().String()
	s.listeners.Add(id, listener, nil)
	var once sync.Once
	return func() {
		once.Do(func() { s.listeners.Remove(id) })
	}
}

// SubscribeWeak registers listener so that it is only invoked while owner
// remains reachable from elsewhere in the program. Unlike Subscribe,
// listener must not close over owner: it receives it explicitly so the
// registry's internal strong reference to listener never keeps owner
// alive on its own.
func SubscribeWeak[O any](s *Store, owner *O, listener func(owner *O, state any)) (unsubscribe func()) {
	id := uuid.New().String()
	var once sync.Once
	unsub := func() { once.Do(func() { s.listeners.Remove(id) }) }
	ref := refs.New(owner, unsub)
	wp := weak.Make(owner)
	wrapped := Listener(func(state any) {
		if o := wp.Value(); o != nil {
			listener(o, state)
		}
	})
	s.listeners.Add(id, wrapped, ref)
	return unsub
}

// SubscribeEvent registers a strongly-held handler for events whose
// EventType matches tag.
func (s *Store) SubscribeEvent(tag string, handler EventHandler) *EventSubscription {
	id := uuid.New().String()
	s.eventHandlers.Add(tag, id, handler, nil)
	es := &EventSubscription{Handler: handler}
	es.unsubscribe = func() { s.eventHandlers.Remove(tag, id) }
	return es
}

// SubscribeEventWeak is the weakly-held analogue of SubscribeEvent: handler
// is invoked only while owner is reachable. The returned EventSubscription
// still holds handler strongly, so a caller retaining it pins the
// registration alive even though the registry itself only holds owner
// weakly.
func SubscribeEventWeak[O any](s *Store, tag string, owner *O, handler func(owner *O, event Event)) *EventSubscription {
	id := uuid.New().String()
	var once sync.Once
	unsub := func() { once.Do(func() { s.eventHandlers.Remove(tag, id) }) }
	ref := refs.New(owner, unsub)
	wp := weak.Make(owner)
	registered := EventHandler(func(e Event) {
		if o := wp.Value(); o != nil {
			handler(o, e)
		}
	})
	s.eventHandlers.Add(tag, id, registered, ref)
	pinned := EventHandler(func(e Event) { handler(owner, e) })
	return &EventSubscription{Handler: pinned, unsubscribe: unsub}
}

// RegisterActionMiddleware appends mw to the action chain and returns an id
// for UnregisterActionMiddleware.
func (s *Store) RegisterActionMiddleware(mw ActionMiddleware) string {
	return s.actionMW.register(mw)
}

// UnregisterActionMiddleware removes a previously registered middleware.
func (s *Store) UnregisterActionMiddleware(id string) {
	s.actionMW.unregister(id)
}

// RegisterEventMiddleware appends mw to the event chain.
func (s *Store) RegisterEventMiddleware(mw EventMiddleware) string {
	return s.eventMW.register(mw)
}

// UnregisterEventMiddleware removes a previously registered middleware.
func (s *Store) UnregisterEventMiddleware(id string) {
	s.eventMW.unregister(id)
}

// Listeners returns a point-in-time snapshot of registered state listeners,
// for introspection (debughttp, tests).
func (s *Store) Listeners() []ObserverInfo {
	entries := s.listeners.Snapshot()
	out := make([]ObserverInfo, len(entries))
	for i, e := range entries {
		out[i] = ObserverInfo{ID: e.ID, RegisteredAt: e.RegisteredAt}
	}
	return out
}

// EventHandlers returns a snapshot of registered handler tags and counts.
func (s *Store) EventHandlers() map[string]int {
	out := make(map[string]int)
	for _, tag := range s.eventHandlers.Tags() {
		out[tag] = len(s.eventHandlers.Snapshot(tag))
	}
	return out
}

// ObserverInfo is a point-in-time introspection record for a single
// registered listener or handler.
type ObserverInfo struct {
	ID           string
	RegisteredAt time.Time
}
