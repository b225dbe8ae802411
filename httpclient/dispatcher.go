package httpclient

import "sync"

// Dispatcher delivers callbacks on the caller's designated context. Dispatch
// must not run fn on the calling goroutine.
type Dispatcher interface {
	Dispatch(fn func())
}

// SerialQueue runs callbacks one at a time, in submission order, on a single
// goroutine. It is the default delivery context of a Client.
type SerialQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

// NewSerialQueue starts a queue goroutine.
func NewSerialQueue() *SerialQueue {
	q := &SerialQueue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.loop()
	return q
}

// Dispatch enqueues fn. Calls after Close are dropped.
func (q *SerialQueue) Dispatch(fn func()) {
	q.TryDispatch(fn)
}

// TryDispatch enqueues fn and reports whether it was accepted. It returns
// false once Close has been called.
func (q *SerialQueue) TryDispatch(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.queue = append(q.queue, fn)
	q.cond.Signal()
	return true
}

// tryDispatcher is implemented by dispatchers that can refuse work.
type tryDispatcher interface {
	TryDispatch(fn func()) bool
}

// Close stops accepting work, drains what is queued and waits for the
// goroutine to exit. Close must not be called from a dispatched callback.
func (q *SerialQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.cond.Signal()
	}
	q.mu.Unlock()
	<-q.done
}

func (q *SerialQueue) loop() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.queue) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.queue) == 0 {
			q.mu.Unlock()
			return
		}
		fn := q.queue[0]
		q.queue[0] = nil
		q.queue = q.queue[1:]
		q.mu.Unlock()

		fn()
	}
}

