package cartsync

import (
	"context"
	"sync"

	"github.com/dronestore/storefront/internal/domain/cart"
)

// remoteTask is one gateway call captured at the version it was issued
// against.
type remoteTask struct {
	op        Operation
	productID cart.ProductID
	name      string
	version   uint64
	identity  cart.Identity
	key       cart.Key
	ctx       context.Context
	call      func(ctx context.Context) error
}

// remoteQueue runs tasks one at a time in submission order on a single
// worker goroutine.
type remoteQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []remoteTask
	busy    bool
	started bool
	closed  bool
	wg      sync.WaitGroup
}

func newRemoteQueue() *remoteQueue {
	q := &remoteQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// start launches the worker. It is a no-op after the first call.
func (q *remoteQueue) start(exec func(remoteTask)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	q.wg.Add(1)
	go q.run(exec)
}

func (q *remoteQueue) run(exec func(remoteTask)) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		t := q.tasks[0]
		q.tasks[0] = remoteTask{}
		q.tasks = q.tasks[1:]
		q.busy = true
		q.mu.Unlock()

		exec(t)

		q.mu.Lock()
		q.busy = false
		q.cond.Broadcast()
		q.mu.Unlock()
	}
}

// push appends a task. It returns false once the queue is closed.
func (q *remoteQueue) push(t remoteTask) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || !q.started {
		return false
	}
	q.tasks = append(q.tasks, t)
	q.cond.Broadcast()
	return true
}

// wait blocks until no task is queued or running
func (q *remoteQueue) wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return
	}
	for len(q.tasks) > 0 || q.busy {
		q.cond.Wait()
	}
}

// pending returns the number of queued and running tasks
func (q *remoteQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.tasks)
	if q.busy {
		n++
	}
	return n
}

// close stops accepting tasks, lets the worker drain what is queued and
// waits for it to exit.
func (q *remoteQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	q.wg.Wait()
}
