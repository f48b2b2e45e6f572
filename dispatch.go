package corestore

import (
	"fmt"
	"reflect"
	"time"
)

// Dispatch accepts zero or more items, each an action, an event, or a
// slice of either (flattened recursively), runs them through the
// registered middlewares, and enqueues the survivors. When no Scheduler is
// configured and no drain is already in progress, Dispatch also drains the
// queues inline before returning.
func (s *Store) Dispatch(items ...any) error {
	return s.enqueueAndMaybeDrain(items)
}

// DispatchWithState first calls withState with the current state (nil if
// the store has no state yet) to produce a slice of items, dispatches
// those, and then dispatches the positional items — two independent
// dispatches in sequence, each going through the normal pipeline.
func (s *Store) DispatchWithState(withState func(state any) []any, items ...any) error {
	if withState != nil {
		state, _ := s.peekState()
		derived := withState(state)
		if err := s.enqueueAndMaybeDrain(derived); err != nil {
			return err
		}
	}
	return s.enqueueAndMaybeDrain(items)
}

func (s *Store) peekState() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.hasState
}

func flatten(items []any) []any {
	out := make([]any, 0, len(items))
	var walk func(any)
	walk = func(item any) {
		if item == nil {
			return
		}
		switch item.(type) {
		case Init, Finish:
			out = append(out, item)
			return
		case Event:
			out = append(out, item)
			return
		}
		v := reflect.ValueOf(item)
		if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
			for i := 0; i < v.Len(); i++ {
				walk(v.Index(i).Interface())
			}
			return
		}
		out = append(out, item)
	}
	for _, it := range items {
		walk(it)
	}
	return out
}

func (s *Store) enqueueAndMaybeDrain(items []any) error {
	flat := flatten(items)
	if len(flat) == 0 {
		return nil
	}

	amw := s.actionMW.snapshot()
	emw := s.eventMW.snapshot()

	s.mu.Lock()
	for _, item := range flat {
		// Finish also satisfies Event, but it is queued as an action so the
		// reducer sees it before drainActions enqueues the Finish event.
		_, isFinish := item.(Finish)
		if ev, ok := item.(Event); ok && !isFinish {
			out, keep, err := applyEventMiddlewares(emw, ev)
			if err != nil {
				s.mu.Unlock()
				return fmt.Errorf("%w: %v", ErrMiddlewareFailure, err)
			}
			if !keep {
				continue
			}
			s.eventQueue = append(s.eventQueue, out)
			continue
		}
		out, keep, err := applyActionMiddlewares(amw, item)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("%w: %v", ErrMiddlewareFailure, err)
		}
		if !keep {
			continue
		}
		s.actionQueue = append(s.actionQueue, out)
	}
	s.mu.Unlock()

	if s.scheduler == nil {
		return s.Run()
	}
	return nil
}

// Run drains the action and event queues until both are empty. It is
// non-reentrant: a call made while a drain is already in progress (on any
// goroutine) returns immediately without error, matching dispatch's
// no-re-entry boundary behavior.
//
// Clearing the running flag and deciding the loop is done must happen as
// one atomic step: if a concurrent Dispatch enqueued an item and called Run
// while this goroutine still held running true but had already committed
// to stopping, that item would never be drained until some unrelated later
// dispatch happened to win the race. Checking the queues under the same
// lock as the flag write closes that window — an enqueue either lands
// before this check (and gets picked up by looping again) or after running
// has been cleared (and gets picked up by the enqueuer's own Run call).
func (s *Store) Run() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	stopRunning := func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}

	emitLifecycle(s.opts.Telemetry, s.opts.Logger, newLifecycleEvent(s.id, lifecycleDispatchStarted, nil))

	for {
		if err := s.drainActions(); err != nil {
			stopRunning()
			return err
		}
		if err := s.drainEvents(); err != nil {
			stopRunning()
			return err
		}

		s.mu.Lock()
		if len(s.actionQueue) == 0 && len(s.eventQueue) == 0 {
			s.running = false
			s.mu.Unlock()
			break
		}
		s.mu.Unlock()
	}

	emitLifecycle(s.opts.Telemetry, s.opts.Logger, newLifecycleEvent(s.id, lifecycleDispatchDrained, nil))
	return nil
}

// drainActions pops every currently-queued action, applying the reducer to
// each in turn. For a composite result, listeners see the new state before
// the reducer's extra actions/events are enqueued (bypassing middleware,
// since they originate from the reducer itself, not an external caller).
func (s *Store) drainActions() error {
	for {
		s.mu.Lock()
		if len(s.actionQueue) == 0 {
			s.mu.Unlock()
			return nil
		}
		action := s.actionQueue[0]
		s.actionQueue = s.actionQueue[1:]
		state := s.state
		s.mu.Unlock()

		result, err := s.applyReducer(state, action)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrReducerFailure, err)
		}

		newState := result.state()

		s.mu.Lock()
		s.state = newState
		s.hasState = true
		s.mu.Unlock()

		emitLifecycle(s.opts.Telemetry, s.opts.Logger, newLifecycleEvent(s.id, lifecycleActionApplied, map[string]any{"action": fmt.Sprintf("%T", action)}))

		if err := s.notifyListeners(newState); err != nil {
			return err
		}

		extraActions := result.extraActions()
		extraEvents := result.extraEvents()
		if len(extraActions) > 0 || len(extraEvents) > 0 {
			s.mu.Lock()
			s.actionQueue = append(s.actionQueue, extraActions...)
			s.eventQueue = append(s.eventQueue, extraEvents...)
			s.mu.Unlock()
		}

		if _, isFinish := action.(Finish); isFinish {
			s.mu.Lock()
			s.eventQueue = append(s.eventQueue, Finish{})
			s.mu.Unlock()
		}
	}
}

func (s *Store) applyReducer(state any, action Action) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	result = s.reducer(state, action)
	return result, nil
}

func (s *Store) notifyListeners(state any) error {
	for _, entry := range s.listeners.Snapshot() {
		if err := s.invokeListener(entry.Handler, state); err != nil {
			return fmt.Errorf("%w: %v", ErrListenerFailure, err)
		}
	}
	return nil
}

func (s *Store) invokeListener(l Listener, state any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	l(state)
	return nil
}

// drainEvents pops every currently-queued event. Finish triggers the
// quiescence watcher (started at most once); other events are routed to
// the worker pool, one task per registered handler for that event's tag.
func (s *Store) drainEvents() error {
	for {
		s.mu.Lock()
		if len(s.eventQueue) == 0 {
			s.mu.Unlock()
			return nil
		}
		event := s.eventQueue[0]
		s.eventQueue = s.eventQueue[1:]
		s.mu.Unlock()

		if _, isFinish := event.(Finish); isFinish {
			s.onFinishRequested()
			continue
		}

		tag := event.EventType()
		handlers := s.eventHandlers.Snapshot(tag)
		emitLifecycle(s.opts.Telemetry, s.opts.Logger, newLifecycleEvent(s.id, lifecycleEventRouted, map[string]any{"type": tag, "handlers": len(handlers)}))
		for _, entry := range handlers {
			handler := entry.Handler
			evt := event
			s.pool.Submit(func() { handler(evt) })
		}
	}
}

// onFinishRequested starts the quiescence watcher exactly once: a
// background goroutine that waits for both queues and the worker pool to
// go idle, sleeps the configured grace period, then runs clean_up.
func (s *Store) onFinishRequested() {
	s.mu.Lock()
	already := s.finishRequested
	s.finishRequested = true
	s.mu.Unlock()
	if already {
		return
	}
	emitLifecycle(s.opts.Telemetry, s.opts.Logger, newLifecycleEvent(s.id, lifecycleFinishReceived, nil))
	go s.watchQuiescenceAndCleanUp()
}

func (s *Store) quiescent() bool {
	s.mu.Lock()
	idle := len(s.actionQueue) == 0 && len(s.eventQueue) == 0
	s.mu.Unlock()
	return idle && s.pool.Idle()
}

func (s *Store) watchQuiescenceAndCleanUp() {
	for !s.quiescent() {
		time.Sleep(time.Millisecond)
	}
	if d := s.opts.graceDuration(); d > 0 {
		time.Sleep(d)
	}
	s.CleanUp()
}

// WaitForEventHandlers blocks until every currently-queued event-handler
// task has been submitted to, and drained by, the worker pool. It does not
// wait for Finish; it is meant for tests and callers that dispatched
// events and want their side effects to have completed before proceeding.
func (s *Store) WaitForEventHandlers() {
	for {
		st := s.pool.Stats()
		if st.Processed >= st.Queued {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// CleanUp joins the worker pool, clears every registry, and invokes
// OnFinish exactly once. It is idempotent: calling it more than once (or
// concurrently with the quiescence watcher) only runs the join/clear/
// callback sequence a single time.
func (s *Store) CleanUp() {
	s.finishedOnce.Do(func() {
		s.pool.Join()
		emitLifecycle(s.opts.Telemetry, s.opts.Logger, newLifecycleEvent(s.id, lifecycleWorkerJoined, nil))
		s.listeners.Clear()
		s.eventHandlers.Clear()
		s.autorunsMu.Lock()
		s.autoruns = nil
		s.autorunsMu.Unlock()
		if s.schedulerStop != nil {
			s.schedulerStop()
		}
		if s.opts.OnFinish != nil {
			s.opts.OnFinish()
		}
		emitLifecycle(s.opts.Telemetry, s.opts.Logger, newLifecycleEvent(s.id, lifecycleCleanupDone, nil))
		close(s.finishedCh)
	})
}

// Done returns a channel closed once CleanUp has completed, useful for
// callers that want to block on orderly shutdown with a select/timeout.
func (s *Store) Done() <-chan struct{} {
	return s.finishedCh
}
