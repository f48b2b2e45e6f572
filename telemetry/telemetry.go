// Package telemetry provides the CloudEvents-based Observer/Subject pair
// that backs corestore's LifecycleObserver hook: event types use reverse
// domain notation, notification is non-blocking for the caller, and
// GetObservers exposes a debugging/introspection snapshot.
package telemetry

import (
	"context"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer is notified of lifecycle CloudEvents it has registered interest
// in (or all of them, if it registered with no event types).
type Observer interface {
	OnEvent(ctx context.Context, event cloudevents.Event) error
	ObserverID() string
}

// ObserverInfo describes a registered observer for introspection.
type ObserverInfo struct {
	ID           string
	EventTypes   []string
	RegisteredAt time.Time
}

type registration struct {
	observer     Observer
	eventTypes   map[string]struct{}
	registeredAt time.Time
}

func (r *registration) interestedIn(eventType string) bool {
	if len(r.eventTypes) == 0 {
		return true
	}
	_, ok := r.eventTypes[eventType]
	return ok
}

// Subject fans CloudEvents out to registered observers and satisfies
// corestore.LifecycleObserver via ObserveLifecycle, so a *Subject can be
// passed directly to corestore.WithTelemetry.
type Subject struct {
	mu        sync.RWMutex
	observers map[string]*registration
	onError   func(observerID string, err error)
}

// NewSubject returns an empty Subject. onError, if non-nil, is invoked
// (off the caller's goroutine) whenever an observer's OnEvent returns an
// error; it may be nil to swallow such errors silently.
func NewSubject(onError func(observerID string, err error)) *Subject {
	return &Subject{observers: make(map[string]*registration), onError: onError}
}

// RegisterObserver adds observer, optionally filtered to eventTypes. An
// empty eventTypes means "receive everything".
func (s *Subject) RegisterObserver(observer Observer, eventTypes ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		set[t] = struct{}{}
	}
	s.observers[observer.ObserverID()] = &registration{
		observer:     observer,
		eventTypes:   set,
		registeredAt: time.Now(),
	}
	return nil
}

// UnregisterObserver removes observer. Idempotent.
func (s *Subject) UnregisterObserver(observer Observer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.observers, observer.ObserverID())
	return nil
}

// NotifyObservers dispatches event to every interested observer
// concurrently, on its own goroutine, recovering from panics so that one
// misbehaving observer cannot affect another or the caller.
func (s *Subject) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	s.mu.RLock()
	targets := make([]*registration, 0, len(s.observers))
	for _, reg := range s.observers {
		if reg.interestedIn(event.Type()) {
			targets = append(targets, reg)
		}
	}
	s.mu.RUnlock()

	for _, reg := range targets {
		reg := reg
		go func() {
			defer func() {
				if r := recover(); r != nil && s.onError != nil {
					s.onError(reg.observer.ObserverID(), errRecoveredPanic{r})
				}
			}()
			if err := reg.observer.OnEvent(ctx, event); err != nil && s.onError != nil {
				s.onError(reg.observer.ObserverID(), err)
			}
		}()
	}
	return nil
}

// ObserveLifecycle adapts Subject to corestore.LifecycleObserver.
func (s *Subject) ObserveLifecycle(ctx context.Context, event cloudevents.Event) error {
	return s.NotifyObservers(ctx, event)
}

// GetObservers returns a snapshot of currently registered observers.
func (s *Subject) GetObservers() []ObserverInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ObserverInfo, 0, len(s.observers))
	for id, reg := range s.observers {
		types := make([]string, 0, len(reg.eventTypes))
		for t := range reg.eventTypes {
			types = append(types, t)
		}
		out = append(out, ObserverInfo{ID: id, EventTypes: types, RegisteredAt: reg.registeredAt})
	}
	return out
}

type errRecoveredPanic struct{ v any }

func (e errRecoveredPanic) Error() string { return "observer panicked" }

// FunctionalObserver adapts a plain function to Observer, a convenience
// constructor for quick observer creation.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver builds an Observer from id and handler.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{id: id, handler: handler}
}

func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

func (f *FunctionalObserver) ObserverID() string { return f.id }
