package corestore

import (
	"sync"

	"github.com/google/uuid"
)

// ActionMiddleware inspects or rewrites an action before it is enqueued.
// Returning keep=false drops the item: it is never enqueued, the reducer
// never sees it, and no listener is notified for it. A non-nil error
// aborts the in-flight dispatch identically to a reducer failure.
type ActionMiddleware func(Action) (out Action, keep bool, err error)

// EventMiddleware is the event-queue analogue of ActionMiddleware.
type EventMiddleware func(Event) (out Event, keep bool, err error)

type middlewareEntry[M any] struct {
	id string
	fn M
}

// middlewareChain is an ordered, registration-order list of middleware
// stages, mutable at runtime without disturbing a chain walk already in
// progress (the walk operates on a snapshot slice).
type middlewareChain[M any] struct {
	mu      sync.Mutex
	entries []middlewareEntry[M]
}

func newMiddlewareChain[M any]() *middlewareChain[M] {
	return &middlewareChain[M]{}
}

func (c *middlewareChain[M]) register(fn M) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uuid.New().String()
	c.entries = append(c.entries, middlewareEntry[M]{id: id, fn: fn})
	return id
}

func (c *middlewareChain[M]) unregister(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.entries {
		if e.id == id {
			c.entries = append(c.entries[:i:i], c.entries[i+1:]...)
			return
		}
	}
}

func (c *middlewareChain[M]) snapshot() []M {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]M, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.fn
	}
	return out
}

// applyActionMiddlewares walks chain in order. keep=false means the item
// was dropped cleanly; a non-nil error means a stage failed and the walk
// stopped immediately, distinct from a clean drop.
func applyActionMiddlewares(chain []ActionMiddleware, a Action) (out Action, keep bool, err error) {
	cur := a
	for _, mw := range chain {
		next, keepIt, mwErr := mw(cur)
		if mwErr != nil {
			return nil, false, mwErr
		}
		if !keepIt {
			return nil, false, nil
		}
		cur = next
	}
	return cur, true, nil
}

func applyEventMiddlewares(chain []EventMiddleware, e Event) (out Event, keep bool, err error) {
	cur := e
	for _, mw := range chain {
		next, keepIt, mwErr := mw(cur)
		if mwErr != nil {
			return nil, false, mwErr
		}
		if !keepIt {
			return nil, false, nil
		}
		cur = next
	}
	return cur, true, nil
}
