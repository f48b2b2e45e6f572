package corestore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutorunReactiveInvokesBodyOnlyWhenSelectedValueChanges(t *testing.T) {
	store, err := New(counterReducer, WithAutoInit())
	require.NoError(t, err)

	var mu sync.Mutex
	calls := 0
	a := store.Autorun(
		func(state any) (any, error) { return state.(counterState).Count, nil },
		func(selected any, args ...any) any {
			mu.Lock()
			defer mu.Unlock()
			calls++
			return selected
		},
		WithInitialCall(),
		WithReactive(),
	)
	require.NotNil(t, a)

	mu.Lock()
	initial := calls
	mu.Unlock()

	require.NoError(t, store.Dispatch(incAction{1}, incAction{0}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, initial+1, calls)
}

func TestAutorunWithoutMemoizationRunsOnEveryCall(t *testing.T) {
	store, err := New(counterReducer, WithAutoInit())
	require.NoError(t, err)

	calls := 0
	a := store.Autorun(
		func(state any) (any, error) { return state.(counterState).Count, nil },
		func(selected any, args ...any) any { calls++; return selected },
		WithoutMemoization(),
	)

	a.Call()
	a.Call()
	a.Call()
	assert.Equal(t, 3, calls)
}

func TestViewIsLazyAndNonReactive(t *testing.T) {
	store, err := New(counterReducer, WithAutoInit())
	require.NoError(t, err)

	v := store.View(func(state any) (any, error) { return state.(counterState).Count, nil })

	require.NoError(t, store.Dispatch(incAction{5}))
	// View never auto-ran, so Call must re-check against current state.
	assert.Equal(t, 5, v.Call())
}

func TestAutorunSubscribeFiresOnChangeAndUnsubscribeStopsIt(t *testing.T) {
	store, err := New(counterReducer, WithAutoInit())
	require.NoError(t, err)

	a := store.Autorun(
		func(state any) (any, error) { return state.(counterState).Count, nil },
		func(selected any, args ...any) any { return selected },
		WithInitialCall(),
		WithReactive(),
	)

	var mu sync.Mutex
	var observed []any
	unsubscribe := a.Subscribe(func(v any) {
		mu.Lock()
		observed = append(observed, v)
		mu.Unlock()
	})

	require.NoError(t, store.Dispatch(incAction{1}))
	unsubscribe()
	require.NoError(t, store.Dispatch(incAction{1}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, observed, 1)
	assert.Equal(t, 1, observed[0])
}

type testAwaitable struct {
	value any
	err   error
}

func (a testAwaitable) Await() (any, error) { return a.value, a.err }

func TestAutorunAutoAwaitResolvesAsynchronously(t *testing.T) {
	store, err := New(counterReducer, WithAutoInit())
	require.NoError(t, err)

	a := store.Autorun(
		func(state any) (any, error) { return state.(counterState).Count, nil },
		func(selected any, args ...any) any { return testAwaitable{value: "resolved"} },
		WithInitialCall(),
	)
	_ = a.Call()

	require.Eventually(t, func() bool {
		return a.Call() == "resolved"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFutureAwaitIsIdempotent(t *testing.T) {
	f := NewFuture()
	go f.resolve(42, nil)

	v1, err1 := f.Await()
	v2, err2 := f.Await()
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, v1, v2)
}
