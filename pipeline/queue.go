package pipeline

import (
	"errors"
	"sync"
)

// ErrQueueClosed is returned when work is submitted after Close
var ErrQueueClosed = errors.New("command queue closed")

// Queue is an in-order command queue: operations submitted to it execute on
// a single worker in submission order, so submission order is execution
// order by construction. This replaces the implicit ordering convention of
// a raw device queue with a type the rest of the pipeline must go through.
//
// Submit is fire-and-forget; SubmitWait blocks until the operation and
// everything submitted before it have completed. The first operation error
// is sticky: later operations are skipped and the error surfaces on the
// next Sync, SubmitWait, or Submit.
type Queue struct {
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	err    error
	closed bool
}

// NewQueue starts the queue worker
func NewQueue() *Queue {
	q := &Queue{
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
	}
	go q.worker()
	return q
}

func (q *Queue) worker() {
	for task := range q.tasks {
		task()
		q.wg.Done()
	}
	close(q.done)
}

func (q *Queue) setErr(err error) {
	q.mu.Lock()
	if q.err == nil {
		q.err = err
	}
	q.mu.Unlock()
}

func (q *Queue) sticky() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	return q.err
}

// Submit enqueues op without waiting for it to run. A queue that has already
// failed or been closed refuses the submission.
func (q *Queue) Submit(op func() error) error {
	if err := q.sticky(); err != nil {
		return err
	}
	q.wg.Add(1)
	q.tasks <- func() {
		q.mu.Lock()
		failed := q.err != nil
		q.mu.Unlock()
		if failed {
			return
		}
		if err := op(); err != nil {
			q.setErr(err)
		}
	}
	return nil
}

// SubmitWait enqueues op and blocks until it and all previously submitted
// operations have completed. This is the pipeline's single host block point.
func (q *Queue) SubmitWait(op func() error) error {
	if err := q.Submit(op); err != nil {
		return err
	}
	return q.Sync()
}

// Sync waits for everything submitted so far and returns the first recorded
// operation error, if any
func (q *Queue) Sync() error {
	q.wg.Wait()
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Close drains outstanding work and stops the worker. Idempotent; further
// submissions return ErrQueueClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.wg.Wait()
	close(q.tasks)
	<-q.done
}
