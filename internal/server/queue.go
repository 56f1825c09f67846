package server

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// queue is the bounded FIFO `Q` of spec.md §4.5/§5: a mutex+condvar ring
// guarding pending connections, paired with a worker pool that grows
// lazily up to MaxIdleWorkers and shrinks back down once idle.
type queue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items *list.List
	sem   *semaphore.Weighted

	idle     int
	nworkers int
}

func newQueue(capacity int64) *queue {
	q := &queue{items: list.New(), sem: semaphore.NewWeighted(capacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// tryEnqueue attempts to push c onto the queue, spinning with back-off up
// to EnqueueAttempts times at EnqueueBackoff each (spec.md §4.5) before
// giving up and reporting failure to the caller, who emits an error frame
// and drops the message.
func (q *queue) tryEnqueue(ctx context.Context, c *connection) bool {
	for attempt := 0; attempt < EnqueueAttempts; attempt++ {
		if q.sem.TryAcquire(1) {
			q.mu.Lock()
			q.items.PushBack(c)
			q.mu.Unlock()
			q.cond.Signal()
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(EnqueueBackoff):
		}
	}
	return false
}

// ensureWorker implements spec.md §4.5's spawn policy: on enqueue, if no
// worker is idle and the pool hasn't reached MaxIdleWorkers, spawn a new
// one; otherwise just signal the condvar once (an already-idle worker
// will pick the new item up).
func (q *queue) ensureWorker(s *Server) {
	q.mu.Lock()
	spawn := q.idle == 0 && q.nworkers < MaxIdleWorkers
	if spawn {
		q.nworkers++
	}
	q.mu.Unlock()

	if spawn {
		go q.runWorker(s)
	} else {
		q.cond.Signal()
	}
}

// broadcastQuit wakes every worker blocked in cond.Wait so each notices
// the global QUIT status at its next wake, per spec.md §5's cancellation
// model.
func (q *queue) broadcastQuit() {
	q.mu.Lock()
	q.cond.Broadcast()
	q.mu.Unlock()
}

// runWorker implements spec.md §4.5's worker protocol verbatim: hold the
// mutex, mark idle, wait while the queue is empty; on wake, exit if the
// server is quitting, else pop the head, release the mutex, and dispatch;
// on return, exit if too many workers are already idle, else loop.
func (q *queue) runWorker(s *Server) {
	q.mu.Lock()
	for {
		q.idle++
		for q.items.Len() == 0 && !s.quitting() {
			q.cond.Wait()
		}
		if s.quitting() {
			q.idle--
			q.nworkers--
			q.mu.Unlock()
			return
		}
		q.idle--
		front := q.items.Front()
		q.items.Remove(front)
		q.sem.Release(1)
		q.mu.Unlock()

		s.dispatch(front.Value.(*connection))

		q.mu.Lock()
		if q.idle >= MaxIdleWorkers {
			q.nworkers--
			q.mu.Unlock()
			return
		}
	}
}
