// Package fanout runs independent named tasks over a bounded worker pool,
// enforcing a per-task deadline and guaranteeing every task is joined before
// the result set is returned.
package fanout

import (
	"context"
	"sync"
	"time"
)

// Task is one named unit of work.
type Task[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Outcome is the terminal state of one task: a value or an error, never
// neither.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Config bounds the pool.
type Config struct {
	Workers     int
	TaskTimeout time.Duration
}

// DefaultConfig returns default pool configuration.
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		TaskTimeout: 60 * time.Second,
	}
}

// Run executes all tasks and returns one outcome per task name. A failing or
// timed-out task produces an error outcome; it never aborts or cancels its
// siblings. A task that ignores cancellation may leak its goroutine past the
// deadline, but Run itself returns within TaskTimeout of the last dispatch.
func Run[T any](ctx context.Context, cfg Config, tasks []Task[T]) map[string]Outcome[T] {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	type job struct {
		index int
		task  Task[T]
	}
	jobs := make(chan job)
	outcomes := make([]Outcome[T], len(tasks))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				outcomes[j.index] = runOne(ctx, cfg.TaskTimeout, j.task)
			}
		}()
	}

	for i, t := range tasks {
		jobs <- job{index: i, task: t}
	}
	close(jobs)
	wg.Wait()

	results := make(map[string]Outcome[T], len(tasks))
	for i, t := range tasks {
		results[t.Name] = outcomes[i]
	}
	return results
}

func runOne[T any](ctx context.Context, timeout time.Duration, task Task[T]) Outcome[T] {
	tctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan Outcome[T], 1)
	go func() {
		value, err := task.Run(tctx)
		done <- Outcome[T]{Value: value, Err: err}
	}()

	select {
	case out := <-done:
		return out
	case <-tctx.Done():
		var zero T
		return Outcome[T]{Value: zero, Err: tctx.Err()}
	}
}
