package corestore

import (
	"reflect"
	"sync"
	"weak"

	"github.com/google/uuid"

	"github.com/corestorelabs/corestore/internal/refs"
	"github.com/corestorelabs/corestore/internal/registry"
)

// Selector projects a value out of state. Returning ErrSelectorAttributeError
// (or any error) signals that state does not yet carry what the selector
// needs; the autorun interprets this as "uninitialized" and defers rather
// than propagating.
type Selector func(state any) (any, error)

// Comparator re-derives the value an autorun compares against its last
// remembered one. A nil Comparator passed to WithComparator reuses the
// selector's own output, per spec ("the comparator defaults to the
// selector itself").
type Comparator func(state any) (any, error)

// AutorunBody is the derivation body: it receives the selector's output
// and any caller-supplied arguments, and returns the derived value. The
// returned value may optionally implement Awaitable.
type AutorunBody func(selected any, args ...any) any

// Awaitable is satisfied by AutorunBody results that represent
// asynchronous work, modeling Python's awaitable return values as an
// explicit Go interface.
type Awaitable interface {
	Await() (any, error)
}

// AutorunOptions are the recognized autorun configuration keys from the
// design's options table.
type AutorunOptions struct {
	DefaultValue          any
	InitialCall           bool
	Reactive              bool
	AutoAwait             bool
	Memoization           bool
	SubscribersInitialRun bool
	SubscribersKeepRef    bool
	comparator            Comparator
}

// AutorunOption configures an Autorun at construction.
type AutorunOption func(*AutorunOptions)

func defaultAutorunOptions() AutorunOptions {
	return AutorunOptions{AutoAwait: true, Memoization: true}
}

// WithDefaultValue sets the value returned before the first successful run.
func WithDefaultValue(v any) AutorunOption { return func(o *AutorunOptions) { o.DefaultValue = v } }

// WithInitialCall runs the body once at creation if state is already populated.
func WithInitialCall() AutorunOption { return func(o *AutorunOptions) { o.InitialCall = true } }

// WithReactive subscribes the autorun to store state changes, auto-invoking
// the body whenever the comparator output changes.
func WithReactive() AutorunOption { return func(o *AutorunOptions) { o.Reactive = true } }

// WithAutoAwait controls the awaitable-handling strategy: true schedules
// awaitable results immediately via the store's TaskScheduler; false wraps
// them in an await-once Future instead.
func WithAutoAwait(b bool) AutorunOption { return func(o *AutorunOptions) { o.AutoAwait = b } }

// WithoutMemoization makes every Call re-run the body regardless of
// whether the comparator output changed.
func WithoutMemoization() AutorunOption { return func(o *AutorunOptions) { o.Memoization = false } }

// WithSubscribersInitialRun sets the default for Autorun.Subscribe's
// initialRun behavior.
func WithSubscribersInitialRun() AutorunOption {
	return func(o *AutorunOptions) { o.SubscribersInitialRun = true }
}

// WithSubscribersKeepRef documents (for introspection) that subscribers are
// expected to be held strongly by default; weak subscribers use
// SubscribeAutorunWeak regardless of this flag.
func WithSubscribersKeepRef() AutorunOption {
	return func(o *AutorunOptions) { o.SubscribersKeepRef = true }
}

// WithComparator overrides the default comparator (which reuses the
// selector's own output).
func WithComparator(cmp Comparator) AutorunOption {
	return func(o *AutorunOptions) { o.comparator = cmp }
}

// Autorun is a memoized derivation over store state: body(selector(state))
// re-runs only when the comparator output changes (or memoization is
// disabled, or the caller supplies arguments).
type Autorun struct {
	store    *Store
	selector Selector
	body     AutorunBody
	opts     AutorunOptions

	mu             sync.Mutex
	hasLast        bool
	lastSelector   any
	lastComparator any
	shouldRun      bool
	cached         any
	pendingFuture  *Future

	subscribers *registry.Registry[func(any)]
	unsubStore  func()
}

// Autorun registers a new derivation. The body runs synchronously inside
// Call; reactive autoruns additionally run it from the dispatch thread
// whenever the store publishes a new state.
func (s *Store) Autorun(selector Selector, body AutorunBody, options ...AutorunOption) *Autorun {
	opts := defaultAutorunOptions()
	for _, opt := range options {
		opt(&opts)
	}
	a := &Autorun{
		store:       s,
		selector:    selector,
		body:        body,
		opts:        opts,
		cached:      opts.DefaultValue,
		subscribers: registry.New[func(any)](),
	}

	s.autorunsMu.Lock()
	s.autoruns = append(s.autoruns, a)
	s.autorunsMu.Unlock()

	if opts.Reactive {
		a.unsubStore = s.Subscribe(func(state any) { a.Call() })
	}

	if state, has := s.peekState(); has && opts.InitialCall {
		a.checkAgainst(state)
		a.runIfDue()
	}

	return a
}

// View creates a purely lazy, change-detected autorun with no initial call
// and no reactivity: initial_call=false, reactive=false, auto_await=false.
func (s *Store) View(selector Selector, options ...AutorunOption) *Autorun {
	body := AutorunBody(func(selected any, _ ...any) any { return selected })
	options = append([]AutorunOption{func(o *AutorunOptions) {
		o.InitialCall = false
		o.Reactive = false
		o.AutoAwait = false
	}}, options...)
	return s.Autorun(selector, body, options...)
}

func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// checkAgainst evaluates the selector/comparator against state and updates
// shouldRun plus the remembered values. It never runs the body.
func (a *Autorun) checkAgainst(state any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	selected, err := a.selector(state)
	if err != nil {
		// Selector references missing state data: treat as uninitialized
		// and defer, per SelectorAttributeError policy.
		return
	}

	var comparedValue any
	if a.opts.comparator != nil {
		cmpValue, cmpErr := a.opts.comparator(state)
		if cmpErr != nil {
			return
		}
		comparedValue = cmpValue
	} else {
		comparedValue = selected
	}

	if !a.hasLast || !valuesEqual(comparedValue, a.lastComparator) {
		a.shouldRun = true
	}
	a.lastSelector = selected
	a.lastComparator = comparedValue
	a.hasLast = true
}

// Call runs the body iff shouldRun is set, args were supplied, or
// memoization is disabled, then returns the (possibly unchanged) cached
// result.
func (a *Autorun) Call(args ...any) any {
	state, has := a.store.peekState()
	if !has {
		// No state yet and nothing to select from: not-needed, per the
		// design's "current state absent" check.
		return a.cachedLocked()
	}
	a.checkAgainst(state)
	return a.runIfDue(args...)
}

func (a *Autorun) cachedLocked() any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cached
}

func (a *Autorun) runIfDue(args ...any) any {
	a.mu.Lock()
	due := a.shouldRun || len(args) > 0 || !a.opts.Memoization
	if !due {
		result := a.cached
		a.mu.Unlock()
		return result
	}
	selected := a.lastSelector
	a.shouldRun = false
	a.mu.Unlock()

	raw := a.body(selected, args...)
	resolved := a.resolveAwaitable(raw)

	a.mu.Lock()
	changed := !a.hasLast || !valuesEqual(resolved, a.cached)
	a.cached = resolved
	a.mu.Unlock()

	if changed {
		a.notifySubscribers(resolved)
	}
	return resolved
}

// resolveAwaitable applies the auto_await strategy to a body result. For a
// non-awaitable result it is a no-op.
func (a *Autorun) resolveAwaitable(raw any) any {
	awaitable, ok := raw.(Awaitable)
	if !ok {
		return raw
	}
	if a.opts.AutoAwait {
		a.store.taskScheduler.Schedule(func() {
			value, err := awaitable.Await()
			if err != nil {
				a.store.opts.Logger.Error("autorun awaitable failed", "error", err)
				return
			}
			a.mu.Lock()
			changed := !valuesEqual(value, a.cached)
			a.cached = value
			a.mu.Unlock()
			if changed {
				a.notifySubscribers(value)
			}
		})
		return nil
	}

	future := NewFuture()
	a.mu.Lock()
	stale := a.pendingFuture
	a.pendingFuture = future
	a.mu.Unlock()
	if stale != nil {
		stale.Close()
	}
	a.store.taskScheduler.Schedule(func() {
		value, err := awaitable.Await()
		future.resolve(value, err)
	})
	return future
}

func (a *Autorun) notifySubscribers(value any) {
	for _, entry := range a.subscribers.Snapshot() {
		entry.Handler(value)
	}
}

// Subscribe registers callback to fire whenever Call produces a changed
// cached result. If initialRun is true, callback additionally fires
// immediately with the current cached value.
func (a *Autorun) Subscribe(callback func(any), initialRun ...bool) (unsubscribe func()) {
	run := a.opts.SubscribersInitialRun
	if len(initialRun) > 0 {
		run = initialRun[0]
	}
	id := uuid.New().String()
	a.subscribers.Add(id, callback, nil)
	var once sync.Once
	unsub := func() { once.Do(func() { a.subscribers.Remove(id) }) }
	if run {
		callback(a.cachedLocked())
	}
	return unsub
}

// SubscribeAutorunWeak is the weakly-held analogue of Autorun.Subscribe:
// callback fires only while owner remains reachable.
func SubscribeAutorunWeak[O any](a *Autorun, owner *O, callback func(*O, any), initialRun ...bool) (unsubscribe func()) {
	run := a.opts.SubscribersInitialRun
	if len(initialRun) > 0 {
		run = initialRun[0]
	}
	id := uuid.New().String()
	var once sync.Once
	unsub := func() { once.Do(func() { a.subscribers.Remove(id) }) }
	ref := refs.New(owner, unsub)
	wp := weak.Make(owner)
	wrapped := func(v any) {
		if o := wp.Value(); o != nil {
			callback(o, v)
		}
	}
	a.subscribers.Add(id, wrapped, ref)
	if run {
		wrapped(a.cachedLocked())
	}
	return unsub
}

// WithState is the store's with_state convenience: given the current
// state, it applies selector and forwards the projection plus the
// caller's own args to fn. If the store has no state yet, it returns
// ErrUninitializedStore unless ignoreUninitializedStore is true, in which
// case it returns (nil, nil).
func (s *Store) WithState(selector func(state any) any, fn func(selected any, args ...any) any, ignoreUninitializedStore bool) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		state, has := s.peekState()
		if !has {
			if ignoreUninitializedStore {
				return nil, nil
			}
			return nil, ErrUninitializedStore
		}
		selected := selector(state)
		return fn(selected, args...), nil
	}
}
