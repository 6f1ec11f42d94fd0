package fetchpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_DispatchNonBlocking(t *testing.T) {
	pool := New(2, 10)
	pool.Start(context.Background())
	defer pool.Stop()

	release := make(chan struct{})
	start := time.Now()
	ok := pool.TryDispatch(Job{Key: "device_data", Handler: func(ctx context.Context) error {
		<-release
		return nil
	}})
	elapsed := time.Since(start)
	close(release)

	assert.True(t, ok)
	assert.Less(t, elapsed, 50*time.Millisecond)
}

func TestPool_SameKeySequential(t *testing.T) {
	pool := New(3, 100)
	pool.Start(context.Background())

	var mu sync.Mutex
	var results []int
	for i := 1; i <= 5; i++ {
		val := i
		pool.Dispatch(Job{Key: "user_data", Handler: func(ctx context.Context) error {
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			results = append(results, val)
			mu.Unlock()
			return nil
		}})
	}
	pool.Stop()

	assert.Equal(t, []int{1, 2, 3, 4, 5}, results)
}

func TestPool_DifferentShardsRunInParallel(t *testing.T) {
	pool := New(4, 10)
	keyA := "device_data"
	keyB := ""
	for _, k := range []string{"user_data", "base_data", "a", "b", "c", "d", "e"} {
		if pool.shardFor(k) != pool.shardFor(keyA) {
			keyB = k
			break
		}
	}
	require.NotEmpty(t, keyB)

	pool.Start(context.Background())
	defer pool.Stop()

	// each job waits for the other; only parallel execution lets both finish
	aStarted := make(chan struct{})
	bStarted := make(chan struct{})
	done := make(chan struct{}, 2)
	pool.Dispatch(Job{Key: keyA, Handler: func(ctx context.Context) error {
		close(aStarted)
		<-bStarted
		done <- struct{}{}
		return nil
	}})
	pool.Dispatch(Job{Key: keyB, Handler: func(ctx context.Context) error {
		close(bStarted)
		<-aStarted
		done <- struct{}{}
		return nil
	}})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("jobs on different shards did not run concurrently")
		}
	}
}

func TestPool_StopDrainsQueuedJobs(t *testing.T) {
	pool := New(1, 10)
	pool.Start(context.Background())

	var completed int32
	for i := 0; i < 4; i++ {
		pool.Dispatch(Job{Key: "base_data", Handler: func(ctx context.Context) error {
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&completed, 1)
			return nil
		}})
	}
	pool.Stop()

	assert.Equal(t, int32(4), atomic.LoadInt32(&completed))
	assert.Equal(t, int64(4), pool.GetStats().TotalProcessed)
}

func TestPool_DropsWhenStoppedOrNotStarted(t *testing.T) {
	pool := New(1, 1)
	assert.False(t, pool.TryDispatch(Job{Key: "x", Handler: func(context.Context) error { return nil }}))

	pool.Start(context.Background())
	pool.Stop()
	assert.False(t, pool.TryDispatch(Job{Key: "x", Handler: func(context.Context) error { return nil }}))
	assert.Equal(t, int64(2), pool.GetStats().TotalDropped)
}

func TestPool_AcceptedJobsRunWhenStopRacesDispatch(t *testing.T) {
	for round := 0; round < 50; round++ {
		pool := New(3, 64)
		pool.Start(context.Background())

		var accepted, ran int32
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					key := string(rune('a' + (g+i)%6))
					if pool.TryDispatch(Job{Key: key, Handler: func(context.Context) error {
						atomic.AddInt32(&ran, 1)
						return nil
					}}) {
						atomic.AddInt32(&accepted, 1)
					}
				}
			}(g)
		}
		go pool.Stop()
		wg.Wait()
		pool.Stop()

		require.Equal(t, atomic.LoadInt32(&accepted), atomic.LoadInt32(&ran), "round %d", round)
	}
}

func TestPool_ParentCancelClosesPoolToNewJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := New(1, 4)
	pool.Start(ctx)
	cancel()

	require.Eventually(t, func() bool {
		return !pool.TryDispatch(Job{Key: "late", Handler: func(context.Context) error { return nil }})
	}, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the parent context was cancelled")
	}
}

func TestPool_DropsWhenQueueFull(t *testing.T) {
	pool := New(1, 1)
	pool.Start(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	noop := func(context.Context) error { return nil }

	require.True(t, pool.TryDispatch(Job{Key: "k", Handler: func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}}))
	<-started
	require.True(t, pool.TryDispatch(Job{Key: "k", Handler: noop}))
	assert.False(t, pool.TryDispatch(Job{Key: "k", Handler: noop}))

	stats := pool.GetStats()
	assert.Equal(t, int64(1), stats.TotalDropped)
	assert.Equal(t, 1, stats.ActiveWorkers)
	assert.Contains(t, stats.InFlight, "k")

	close(release)
	pool.Stop()
}

func TestPool_ErrorsAndPanicsAreCounted(t *testing.T) {
	pool := New(1, 10)
	pool.Start(context.Background())
	pool.Dispatch(Job{Key: "k", Handler: func(context.Context) error { return errors.New("boom") }})
	pool.Dispatch(Job{Key: "k", Handler: func(context.Context) error { panic("bad payload") }})
	pool.Dispatch(Job{Key: "k", Handler: func(context.Context) error { return nil }})
	pool.Stop()

	stats := pool.GetStats()
	assert.Equal(t, int64(2), stats.TotalErrors)
	assert.Equal(t, int64(3), stats.TotalProcessed)
	assert.Empty(t, stats.InFlight)
}

func TestPool_ConsistentHashing(t *testing.T) {
	pool := New(4, 10)
	s := pool.shardFor("device_data")
	assert.Equal(t, s, pool.shardFor("device_data"))
	assert.GreaterOrEqual(t, s, 0)
	assert.Less(t, s, 4)
}
