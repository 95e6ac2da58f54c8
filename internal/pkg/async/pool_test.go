package async_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmetrics/internal/pkg/async"
)

func TestExecuteCollectsAllResultsByName(t *testing.T) {
	tasks := make([]async.Task, 5)
	for i := range tasks {
		i := i
		tasks[i] = async.Task{
			Name:    fmt.Sprintf("task-%d", i),
			Execute: func() (interface{}, error) { return i * 10, nil },
		}
	}

	results := async.NewPool(3).Execute(context.Background(), tasks)

	require.Len(t, results, 5)
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("task-%d", i)
		assert.Equal(t, i*10, results[name].Data)
		assert.NoError(t, results[name].Err)
	}
}

func TestExecutePropagatesTaskErrors(t *testing.T) {
	boom := errors.New("boom")
	tasks := []async.Task{
		{Name: "ok", Execute: func() (interface{}, error) { return "fine", nil }},
		{Name: "bad", Execute: func() (interface{}, error) { return nil, boom }},
	}

	results := async.NewPool(2).Execute(context.Background(), tasks)

	require.Len(t, results, 2)
	assert.NoError(t, results["ok"].Err)
	assert.ErrorIs(t, results["bad"].Err, boom)
}

func TestExecuteBoundsConcurrency(t *testing.T) {
	var current, peak int64
	tasks := make([]async.Task, 8)
	for i := range tasks {
		tasks[i] = async.Task{
			Name: fmt.Sprintf("task-%d", i),
			Execute: func() (interface{}, error) {
				n := atomic.AddInt64(&current, 1)
				for {
					p := atomic.LoadInt64(&peak)
					if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt64(&current, -1)
				return nil, nil
			},
		}
	}

	results := async.NewPool(2).Execute(context.Background(), tasks)

	require.Len(t, results, 8)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

func TestExecuteStopsQueueingWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	tasks := []async.Task{
		{Name: "first", Execute: func() (interface{}, error) {
			close(started)
			<-release
			return "done", nil
		}},
		{Name: "second", Execute: func() (interface{}, error) { return "done", nil }},
	}

	done := make(chan map[string]async.Result)
	go func() { done <- async.NewPool(1).Execute(ctx, tasks) }()

	<-started
	cancel()
	close(release)

	results := <-done
	// The in-flight task completes; the queued one is dropped.
	assert.Contains(t, results, "first")
	assert.NotContains(t, results, "second")
}

func TestNewPoolClampsWorkerCount(t *testing.T) {
	results := async.NewPool(0).Execute(context.Background(), []async.Task{
		{Name: "only", Execute: func() (interface{}, error) { return 1, nil }},
	})
	require.Len(t, results, 1)
	assert.Equal(t, 1, results["only"].Data)
}
