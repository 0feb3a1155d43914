package worker

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
)

// Task is one input together with its outcome.
type Task[T any, R any] struct {
	Input  T
	Result R
	Err    error
	// Done is false when the task was never run because the context ended.
	Done bool
}

// ProcessFunc processes a single input.
type ProcessFunc[T any, R any] func(ctx context.Context, input T) (R, error)

// Pool is a generic worker pool with configurable concurrency.
type Pool[T any, R any] struct {
	workers  int
	process  ProcessFunc[T, R]
	progress func()
}

// NewPool creates a new worker pool.
func NewPool[T any, R any](workers int, fn ProcessFunc[T, R]) *Pool[T, R] {
	if workers < 1 {
		workers = 1
	}
	return &Pool[T, R]{
		workers: workers,
		process: fn,
	}
}

// OnProgress registers fn to be called after each finished task. It may be
// called from several goroutines at once.
func (p *Pool[T, R]) OnProgress(fn func()) *Pool[T, R] {
	p.progress = fn
	return p
}

// Execute runs all inputs through the pool. Results keep the input order.
// Inputs not yet started when ctx ends are returned with Done unset.
func (p *Pool[T, R]) Execute(ctx context.Context, inputs []T) []Task[T, R] {
	tasks := make([]Task[T, R], len(inputs))
	for i := range inputs {
		tasks[i].Input = inputs[i]
	}

	next := make(chan int)
	var wg sync.WaitGroup
	for w := range p.workers {
		wg.Go(func() {
			for idx := range next {
				p.run(ctx, w, &tasks[idx])
			}
		})
	}

feed:
	for i := range tasks {
		select {
		case <-ctx.Done():
			break feed
		case next <- i:
		}
	}
	close(next)
	wg.Wait()

	return tasks
}

func (p *Pool[T, R]) run(ctx context.Context, worker int, task *Task[T, R]) {
	if ctx.Err() != nil {
		return
	}
	task.Result, task.Err = p.process(ctx, task.Input)
	task.Done = true
	if task.Err != nil {
		log.Debug().Err(task.Err).Int("worker", worker).Msg("Task failed")
	}
	if p.progress != nil {
		p.progress()
	}
}

// Batch splits items into batches of at most size items.
func Batch[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	return slices.Collect(slices.Chunk(items, max(size, 1)))
}
