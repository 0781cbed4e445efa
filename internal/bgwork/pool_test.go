package bgwork

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := New(2, 32, nil)
	defer p.Shutdown()

	var wg sync.WaitGroup
	var count int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		p.Submit(func() {
			atomic.AddInt32(&count, 1)
			wg.Done()
		})
	}

	waitOrTimeout(t, &wg, time.Second)
	assert.Equal(t, int32(20), atomic.LoadInt32(&count))
}

func TestPool_PanicInTaskDoesNotKillWorker(t *testing.T) {
	p := New(1, 4, nil)
	defer p.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)
	p.Submit(func() { panic("boom") })

	var ran int32
	p.Submit(func() {
		atomic.StoreInt32(&ran, 1)
		wg.Done()
	})

	waitOrTimeout(t, &wg, time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestPool_SubmitAfterShutdownDoesNotPanic(t *testing.T) {
	p := New(1, 1, nil)
	p.Shutdown()
	assert.NotPanics(t, func() {
		p.Submit(func() {})
	})
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		require.Fail(t, "timed out waiting for tasks")
	}
}
