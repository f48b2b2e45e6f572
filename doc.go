// Package corestore implements a reactive, event-aware state store modeled
// on the Redux architecture, adapted as an in-process concurrency
// primitive rather than a UI state container.
//
// A Store holds a single, treated-as-immutable state value. Actions flow
// through a middleware chain into an action queue; a single-writer drain
// loop applies a Reducer to each queued action in turn, publishes the
// resulting state to subscribed Listeners, and routes any Events the
// reducer produced to a bounded worker pool for asynchronous handling.
// Autoruns and Views layer memoized, optionally reactive derivations on
// top of the published state.
//
// Basic usage:
//
//	type State struct{ Count int }
//
//	reducer := func(state any, action corestore.Action) corestore.Result {
//	    s, _ := state.(State)
//	    switch a := action.(type) {
//	    case corestore.Init:
//	        return corestore.Plain(State{})
//	    case Inc:
//	        return corestore.Plain(State{Count: s.Count + a.N})
//	    }
//	    return corestore.Plain(s)
//	}
//
//	store, err := corestore.New(reducer, corestore.WithAutoInit())
//	unsubscribe := store.Subscribe(func(state any) {
//	    fmt.Println(state.(State).Count)
//	})
//	store.Dispatch(Inc{N: 1}, Inc{N: 2})
package corestore
