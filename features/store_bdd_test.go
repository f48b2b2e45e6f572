package features_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/corestorelabs/corestore"
)

// counterState is the shared state shape used by every scenario in this
// package: a single incrementing counter. The composite-result scenario
// tracks CallApi deliveries in storeBDDContext, not in the state.
type counterState struct {
	Count int
}

type incAction struct{ N int }
type tickAction struct{}

type pingEvent struct{}

func (pingEvent) EventType() string { return "ping" }

type callAPIEvent struct{}

func (callAPIEvent) EventType() string { return "call-api" }

func counterReducer(state any, action corestore.Action) corestore.Result {
	s, _ := state.(counterState)
	switch a := action.(type) {
	case corestore.Init:
		return corestore.Plain(counterState{})
	case incAction:
		return corestore.Plain(counterState{Count: s.Count + a.N})
	case tickAction:
		return corestore.WithEffects(counterState{Count: s.Count + 1}, nil, []corestore.Event{callAPIEvent{}})
	default:
		return corestore.Plain(s)
	}
}

// storeBDDContext holds everything a step definition needs across a single
// scenario. godog re-creates one per scenario via ScenarioInitializer.
type storeBDDContext struct {
	mu sync.Mutex

	store *corestore.Store

	observedCounts []int

	handlerCalls   map[string]int
	handlerEvents  map[string]corestore.Event

	autorunInitialCalls int
	autorunCalls        int

	finalCount int

	callAPIFired   int
	listenerOrder  []string

	onFinishCalled int
	onFinishCh     chan struct{}
}

func (c *storeBDDContext) reset() {
	c.store = nil
	c.observedCounts = nil
	c.handlerCalls = make(map[string]int)
	c.handlerEvents = make(map[string]corestore.Event)
	c.autorunInitialCalls = 0
	c.autorunCalls = 0
	c.finalCount = 0
	c.callAPIFired = 0
	c.listenerOrder = nil
	c.onFinishCalled = 0
	c.onFinishCh = make(chan struct{}, 1)
}

func (c *storeBDDContext) aCounterStoreWithASubscribedListener() error {
	c.reset()
	store, err := corestore.New(counterReducer)
	if err != nil {
		return err
	}
	c.store = store
	store.Subscribe(func(state any) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.observedCounts = append(c.observedCounts, state.(counterState).Count)
	})
	return store.Dispatch(corestore.Init{})
}

func (c *storeBDDContext) iDispatchIncIncInc() error {
	return c.store.Dispatch(incAction{N: 1}, incAction{N: 2}, incAction{N: 3})
}

func (c *storeBDDContext) theListenerShouldHaveObservedCountsInOrder() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	want := []int{0, 1, 3, 6}
	if len(c.observedCounts) != len(want) {
		return errorf("expected %v, got %v", want, c.observedCounts)
	}
	for i, v := range want {
		if c.observedCounts[i] != v {
			return errorf("expected %v, got %v", want, c.observedCounts)
		}
	}
	return nil
}

func (c *storeBDDContext) theSnapshotShouldReflectCount6() error {
	snap, err := c.store.Snapshot()
	if err != nil {
		return err
	}
	if string(snap) != `{"Count":6}` {
		return errorf("unexpected snapshot %s", snap)
	}
	return nil
}

func (c *storeBDDContext) aCounterStoreWithTwoHandlersSubscribedToEventPing() error {
	c.reset()
	store, err := corestore.New(counterReducer, corestore.WithAutoInit())
	if err != nil {
		return err
	}
	c.store = store
	store.SubscribeEvent("ping", func(e corestore.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.handlerCalls["a"]++
		c.handlerEvents["a"] = e
	})
	store.SubscribeEvent("ping", func(e corestore.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.handlerCalls["b"]++
		c.handlerEvents["b"] = e
	})
	return nil
}

func (c *storeBDDContext) iDispatchAPingEvent() error {
	return c.store.Dispatch(pingEvent{})
}

func (c *storeBDDContext) bothHandlersShouldHaveBeenCalledExactlyOnce() error {
	c.store.WaitForEventHandlers()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlerCalls["a"] != 1 || c.handlerCalls["b"] != 1 {
		return errorf("expected both handlers called once, got %v", c.handlerCalls)
	}
	return nil
}

func (c *storeBDDContext) bothHandlersShouldHaveReceivedTheSameEvent() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlerEvents["a"] != c.handlerEvents["b"] {
		return errorf("handlers observed different events")
	}
	return nil
}

func (c *storeBDDContext) aCounterStoreWithAnAutorunSelectingCount() error {
	c.reset()
	store, err := corestore.New(counterReducer, corestore.WithAutoInit())
	if err != nil {
		return err
	}
	c.store = store
	store.Autorun(
		func(state any) (any, error) { return state.(counterState).Count, nil },
		func(selected any, args ...any) any {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.autorunCalls++
			return selected
		},
		corestore.WithInitialCall(),
		corestore.WithReactive(),
	)
	c.mu.Lock()
	c.autorunInitialCalls = c.autorunCalls
	c.mu.Unlock()
	return nil
}

func (c *storeBDDContext) iDispatchIncInc0() error {
	return c.store.Dispatch(incAction{N: 1}, incAction{N: 0})
}

func (c *storeBDDContext) theAutorunBodyShouldHaveBeenInvokedExactlyOnceMoreThanItsInitialRun() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autorunCalls != c.autorunInitialCalls+1 {
		return errorf("expected %d calls, got %d", c.autorunInitialCalls+1, c.autorunCalls)
	}
	return nil
}

func (c *storeBDDContext) aCounterStoreWithAMiddlewareThatDropsInc2() error {
	c.reset()
	drop := func(action corestore.Action) (corestore.Action, bool, error) {
		if inc, ok := action.(incAction); ok && inc.N == 2 {
			return nil, false, nil
		}
		return action, true, nil
	}
	store, err := corestore.New(counterReducer, corestore.WithAutoInit(), corestore.WithActionMiddlewares(drop))
	if err != nil {
		return err
	}
	c.store = store
	return nil
}

func (c *storeBDDContext) theFinalCountShouldBe4() error {
	snap, err := c.store.Snapshot()
	if err != nil {
		return err
	}
	if string(snap) != `{"Count":4}` {
		return errorf("unexpected snapshot %s", snap)
	}
	return nil
}

func (c *storeBDDContext) aCounterStoreWhoseReducerEmitsACallAPIEventOnTick() error {
	c.reset()
	store, err := corestore.New(counterReducer, corestore.WithAutoInit())
	if err != nil {
		return err
	}
	c.store = store
	store.Subscribe(func(state any) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.listenerOrder = append(c.listenerOrder, "state")
	})
	store.SubscribeEvent("call-api", func(e corestore.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.callAPIFired++
		c.listenerOrder = append(c.listenerOrder, "call-api")
	})
	return nil
}

func (c *storeBDDContext) iDispatchTick() error {
	return c.store.Dispatch(tickAction{})
}

func (c *storeBDDContext) theListenerShouldHaveSeenTheNewStateFirst() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.listenerOrder) == 0 || c.listenerOrder[0] != "state" {
		return errorf("expected state notification first, got %v", c.listenerOrder)
	}
	return nil
}

func (c *storeBDDContext) exactlyOneCallAPIEventShouldHaveFiredOnAWorker() error {
	c.store.WaitForEventHandlers()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.callAPIFired != 1 {
		return errorf("expected 1 CallApi event, got %d", c.callAPIFired)
	}
	return nil
}

func (c *storeBDDContext) aCounterStoreWithASubscribedListenerAndAZeroGracePeriod() error {
	c.reset()
	store, err := corestore.New(
		counterReducer,
		corestore.WithAutoInit(),
		corestore.WithGraceTime(0),
		corestore.WithOnFinish(func() {
			c.mu.Lock()
			c.onFinishCalled++
			c.mu.Unlock()
			c.onFinishCh <- struct{}{}
		}),
	)
	if err != nil {
		return err
	}
	c.store = store
	store.Subscribe(func(state any) {})
	return nil
}

func (c *storeBDDContext) iDispatchFinish() error {
	return c.store.Dispatch(corestore.Finish{})
}

func (c *storeBDDContext) onFinishShouldBeCalledExactlyOnceWithinTheGracePeriod() error {
	select {
	case <-c.onFinishCh:
	case <-time.After(2 * time.Second):
		return errorf("on_finish was not called in time")
	}
	select {
	case <-c.store.Done():
	case <-time.After(2 * time.Second):
		return errorf("store did not signal Done")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.onFinishCalled != 1 {
		return errorf("expected on_finish called once, got %d", c.onFinishCalled)
	}
	return nil
}

func (c *storeBDDContext) theListenerSetShouldBeEmpty() error {
	if len(c.store.Listeners()) != 0 {
		return errorf("expected empty listener set, got %d", len(c.store.Listeners()))
	}
	return nil
}

func errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

func TestStoreBDD(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			c := &storeBDDContext{}

			sc.Given(`^a counter store with a subscribed listener$`, c.aCounterStoreWithASubscribedListener)
			sc.When(`^I dispatch Inc\(1\), Inc\(2\), Inc\(3\)$`, c.iDispatchIncIncInc)
			sc.Then(`^the listener should have observed counts 0, 1, 3, 6 in order$`, c.theListenerShouldHaveObservedCountsInOrder)
			sc.Then(`^the snapshot should reflect count 6$`, c.theSnapshotShouldReflectCount6)

			sc.Given(`^a counter store with two handlers subscribed to event "ping"$`, c.aCounterStoreWithTwoHandlersSubscribedToEventPing)
			sc.When(`^I dispatch a Ping event$`, c.iDispatchAPingEvent)
			sc.Then(`^both handlers should have been called exactly once$`, c.bothHandlersShouldHaveBeenCalledExactlyOnce)
			sc.Then(`^both handlers should have received the same event$`, c.bothHandlersShouldHaveReceivedTheSameEvent)

			sc.Given(`^a counter store with an autorun selecting count$`, c.aCounterStoreWithAnAutorunSelectingCount)
			sc.When(`^I dispatch Inc\(1\), Inc\(0\)$`, c.iDispatchIncInc0)
			sc.Then(`^the autorun body should have been invoked exactly once more than its initial run$`, c.theAutorunBodyShouldHaveBeenInvokedExactlyOnceMoreThanItsInitialRun)

			sc.Given(`^a counter store with a middleware that drops Inc\(2\)$`, c.aCounterStoreWithAMiddlewareThatDropsInc2)
			sc.Then(`^the final count should be 4$`, c.theFinalCountShouldBe4)

			sc.Given(`^a counter store whose reducer emits a CallApi event on Tick$`, c.aCounterStoreWhoseReducerEmitsACallAPIEventOnTick)
			sc.When(`^I dispatch Tick$`, c.iDispatchTick)
			sc.Then(`^the listener should have seen the new state first$`, c.theListenerShouldHaveSeenTheNewStateFirst)
			sc.Then(`^exactly one CallApi event should have fired on a worker$`, c.exactlyOneCallAPIEventShouldHaveFiredOnAWorker)

			sc.Given(`^a counter store with a subscribed listener and a zero grace period$`, c.aCounterStoreWithASubscribedListenerAndAZeroGracePeriod)
			sc.When(`^I dispatch Finish$`, c.iDispatchFinish)
			sc.Then(`^on_finish should be called exactly once within the grace period$`, c.onFinishShouldBeCalledExactlyOnceWithinTheGracePeriod)
			sc.Then(`^the listener set should be empty$`, c.theListenerSetShouldBeEmpty)
		},
		Options: &godog.Options{
			Format: "pretty",
			Paths:  []string{"."},
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
