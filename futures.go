package coroja

import "sync"

// localFuture is a thread-local unit of native work submitted via
// State.SpawnLocal: it always runs to completion, detached, on the
// goroutine running Scheduler.Run. Unlike a coroutine task it
// has no Handle; spec.md §4.2 notes "adopted futures run detached."
type localFuture func()

// FuturesQueue has the identical push/drain/listen contract as
// ThreadQueue (C1), but carries bare thread-local futures instead of
// coroutine items, and has no registry indirection to worry about since
// a Go closure needs no interpreter-borrow workaround.
type FuturesQueue struct {
	metrics *Metrics

	mu     sync.Mutex
	active []localFuture
	spare  []localFuture
	signal chan struct{}
}

// NewFuturesQueue creates an empty FuturesQueue, recording every push
// against metrics.
func NewFuturesQueue(metrics *Metrics) *FuturesQueue {
	return &FuturesQueue{metrics: metrics, signal: make(chan struct{}, 1)}
}

// Push enqueues fut, push-before-notify, matching ThreadQueue.Push.
func (q *FuturesQueue) Push(fut localFuture) {
	q.mu.Lock()
	q.active = append(q.active, fut)
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.futuresSpawned.Add(1)
	}

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Drain consumes every currently-queued future exactly once, FIFO.
func (q *FuturesQueue) Drain() []localFuture {
	q.mu.Lock()
	futs := q.active
	q.active, q.spare = q.spare[:0], q.active
	q.mu.Unlock()
	return futs
}

// Listen resolves once at least one future has been pushed since the
// last Drain/Listen, draining the signal backlog after waking, exactly
// like ThreadQueue.Listen.
func (q *FuturesQueue) Listen() <-chan struct{} {
	out := make(chan struct{})
	go func() {
		<-q.signal
		for {
			select {
			case <-q.signal:
				continue
			default:
			}
			break
		}
		close(out)
	}()
	return out
}

// HostFuture is the value a host async function (e.g. sleep) returns to
// guest code to signal "await this before resuming me". The Runner
// recognizes it via Export() and awaits Done before driving the next
// resume - the single suspension point inside a coroutine task per
// spec.md §4.5. It is exported so that binding packages outside coroja
// itself (see guest) can construct one for their own host functions.
type HostFuture struct {
	done   chan struct{}
	values []any
	err    error
}

// NewHostFuture creates a pending HostFuture.
func NewHostFuture() *HostFuture {
	return &HostFuture{done: make(chan struct{})}
}

// Resolve fulfills the future and wakes its awaiter. Safe to call at
// most once; a second call would double-close done and panic, which is
// intentional - it indicates a bug in the host function that created it.
func (f *HostFuture) Resolve(values []any, err error) {
	f.values = values
	f.err = err
	close(f.done)
}
