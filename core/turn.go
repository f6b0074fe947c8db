package core

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// turnQueue hands out a single turn slot. Waiters of a weighted semaphore are
// served in arrival order, and a waiter that gives up leaves the queue.
type turnQueue struct {
	once    sync.Once
	sem     *semaphore.Weighted
	waiting atomic.Int64
}

func (q *turnQueue) acquire(ctx context.Context) (func(), error) {
	q.once.Do(func() { q.sem = semaphore.NewWeighted(1) })

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q.waiting.Add(1)

	if err := q.sem.Acquire(ctx, 1); err != nil {
		q.waiting.Add(-1)
		return nil, err
	}

	var released sync.Once

	return func() {
		released.Do(func() {
			q.waiting.Add(-1)
			q.sem.Release(1)
		})
	}, nil
}

// pending returns the number of holders plus waiters.
func (q *turnQueue) pending() int {
	return int(q.waiting.Load())
}
