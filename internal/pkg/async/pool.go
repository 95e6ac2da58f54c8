// Package async runs a set of named, independent tasks on a bounded pool of
// workers and collects their results by name.
package async

import (
	"context"
	"sync"
)

// Task is one unit of work. Names must be unique within a single Execute
// call; the result map is keyed by them.
type Task struct {
	Name    string
	Execute func() (interface{}, error)
}

// Result carries the outcome of one task.
type Result struct {
	Name string
	Data interface{}
	Err  error
}

// Pool executes tasks with at most workerCount goroutines in flight.
type Pool struct {
	workerCount int
}

// NewPool returns a pool bounded to workerCount concurrent tasks. A
// non-positive count runs tasks one at a time.
func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

// Execute runs every task and returns the results keyed by task name. When
// the context is cancelled mid-flight, the map holds only the tasks that
// finished; callers detect the gap by a missing key.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	queue := make(chan Task)
	results := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				data, err := task.Execute()
				results <- Result{Name: task.Name, Data: data, Err: err}
			}
		}()
	}

	go func() {
		defer close(queue)
		for _, task := range tasks {
			select {
			case queue <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make(map[string]Result, len(tasks))
	for result := range results {
		collected[result.Name] = result
	}
	return collected
}
