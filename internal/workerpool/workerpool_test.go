package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsEveryTaskExactlyOnce(t *testing.T) {
	p := New(16, nil)
	p.Start(4)

	var n atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		require.True(t, p.Submit(func() {
			defer wg.Done()
			n.Add(1)
		}))
	}
	wg.Wait()
	assert.EqualValues(t, 50, n.Load())
}

func TestPanicIsContainedAndReportedToHandler(t *testing.T) {
	var recovered atomic.Value
	done := make(chan struct{}, 1)
	p := New(4, func(r any) {
		recovered.Store(r)
		done <- struct{}{}
	})
	p.Start(1)

	require.True(t, p.Submit(func() { panic("boom") }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("panic handler was never invoked")
	}
	assert.Equal(t, "boom", recovered.Load())

	// the pool keeps running after a contained panic
	var ran atomic.Bool
	finished := make(chan struct{}, 1)
	require.True(t, p.Submit(func() { ran.Store(true); finished <- struct{}{} }))
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("pool stopped accepting tasks after a panic")
	}
	assert.True(t, ran.Load())
}

func TestJoinIsIdempotentAndStopsFurtherSubmits(t *testing.T) {
	p := New(4, nil)
	p.Start(2)
	p.Join()
	p.Join()

	assert.False(t, p.Submit(func() {}))
}

func TestStatsTracksQueuedAndProcessed(t *testing.T) {
	p := New(8, nil)
	p.Start(2)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		p.Submit(func() { defer wg.Done() })
	}
	wg.Wait()
	p.Join()

	stats := p.Stats()
	assert.EqualValues(t, 5, stats.Queued)
	assert.EqualValues(t, 5, stats.Processed)
	assert.EqualValues(t, 0, stats.Panics)
}

func TestSubmitNilTaskIsRejected(t *testing.T) {
	p := New(4, nil)
	p.Start(1)
	assert.False(t, p.Submit(nil))
}
