package executor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolRunsJobs(t *testing.T) {
	pool := NewWorkerPool(JobHandlerFunc(func(_ context.Context, job ExecutionJob) Result {
		return Result{Output: job.Language + ":" + job.Code}
	}), NewTracker(), quietLogger(), 2, 4)
	defer pool.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := pool.ExecuteJob(context.Background(), ExecutionJob{ID: NewToken(), Language: "python", Code: "x"})
			assert.NoError(t, res.Error)
			assert.Equal(t, "python:x", res.Output)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, pool.Stats().Active)
}

func TestWorkerPoolRejectsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan string, 2)
	pool := NewWorkerPool(JobHandlerFunc(func(_ context.Context, job ExecutionJob) Result {
		started <- job.ID
		<-release
		return Result{Output: job.ID}
	}), NewTracker(), quietLogger(), 1, 1)
	defer pool.Shutdown()

	results := make(chan Result, 2)
	go func() {
		results <- pool.ExecuteJob(context.Background(), ExecutionJob{ID: "a"})
	}()
	assert.Equal(t, "a", <-started)

	go func() {
		results <- pool.ExecuteJob(context.Background(), ExecutionJob{ID: "b"})
	}()
	require.Eventually(t, func() bool {
		return pool.Stats().Queued == 1
	}, 5*time.Second, 10*time.Millisecond)

	res := pool.ExecuteJob(context.Background(), ExecutionJob{ID: "c"})
	require.Error(t, res.Error)
	assert.Equal(t, KindBusy, KindOf(res.Error))
	assert.ErrorIs(t, res.Error, ErrQueueFull)
	assert.Equal(t, "job queue full, max capacity: 1", res.Error.Error())

	stats := pool.Stats()
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 1, stats.QueueCapacity)
	require.Len(t, stats.Jobs, 2)

	close(release)
	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			assert.NoError(t, r.Error)
			got[r.Output] = true
		case <-time.After(5 * time.Second):
			t.Fatal("queued jobs never finished")
		}
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true}, got)
}

func TestWorkerPoolShutdownReleasesQueuedJob(t *testing.T) {
	release := make(chan struct{})
	started := make(chan string, 2)
	tracker := NewTracker()
	pool := NewWorkerPool(JobHandlerFunc(func(_ context.Context, job ExecutionJob) Result {
		started <- job.ID
		<-release
		return Result{Output: job.ID}
	}), tracker, quietLogger(), 1, 1)

	running := make(chan Result, 1)
	go func() {
		running <- pool.ExecuteJob(context.Background(), ExecutionJob{ID: "running"})
	}()
	require.Equal(t, "running", <-started)

	queued := make(chan Result, 1)
	go func() {
		queued <- pool.ExecuteJob(context.Background(), ExecutionJob{ID: "queued"})
	}()
	require.Eventually(t, func() bool {
		return pool.Stats().Queued == 1
	}, 5*time.Second, 10*time.Millisecond)

	shutdownDone := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(shutdownDone)
	}()

	select {
	case res := <-queued:
		assert.Equal(t, KindBusy, KindOf(res.Error))
		assert.ErrorIs(t, res.Error, ErrPoolClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("queued job was not released by shutdown")
	}

	snap := tracker.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "running", snap[0].ID)

	close(release)
	<-shutdownDone
	assert.Equal(t, "running", (<-running).Output)
	assert.Equal(t, 0, tracker.Active())
	assert.Len(t, started, 0, "queued job must not run after shutdown")
}

func TestWorkerPoolAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(JobHandlerFunc(func(context.Context, ExecutionJob) Result {
		return Result{}
	}), nil, quietLogger(), 1, 1)
	pool.Shutdown()
	pool.Shutdown()

	res := pool.ExecuteJob(context.Background(), ExecutionJob{ID: "late"})
	assert.Equal(t, KindBusy, KindOf(res.Error))
	assert.ErrorIs(t, res.Error, ErrPoolClosed)
}

func TestTrackerStates(t *testing.T) {
	tr := NewTracker()
	tr.Begin(ExecutionJob{ID: "one", Language: "cpp"})
	tr.SetState("one", StateExecuting)
	tr.SetState("ghost", StateExecuting)

	snap := tr.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, StateExecuting, snap[0].State)
	assert.Equal(t, "cpp", snap[0].Language)

	tr.End("one")
	assert.Equal(t, 0, tr.Active())

	var nilTracker *Tracker
	nilTracker.Begin(ExecutionJob{ID: "x"})
	assert.Nil(t, nilTracker.Snapshot())
}
