package corestore

// Action is a tagged value describing an intended state transition. User
// reducers type-switch on the concrete type to decide how to handle it.
// Any Go value can serve as an action; the store only special-cases the two
// built-in variants below.
type Action = any

// Init is dispatched once at construction when a Store is built with
// WithAutoInit. Reducers typically return the zero/initial state for it.
type Init struct{}

// Finish requests orderly shutdown. Dispatching it causes the drain loop to
// enqueue a Finish event once its (possibly trivial) reducer pass completes;
// see dispatch.go for the quiescence-triggered clean_up path.
type Finish struct{}

// EventType implements Event so that Finish can also flow through the
// event queue without a second type.
func (Finish) EventType() string { return finishEventType }
