package coroja

import (
	"sync"
	"sync/atomic"
)

// nativeExecutor is the Send-safe analogue of async_executor::Executor:
// a pool that runs host-submitted background work (State.Spawn) without
// ever touching a *goja.Runtime, so it is free to run on any goroutine,
// including ones the Go runtime schedules onto a different OS thread than
// the one driving the coroutine dispatcher. This is the "main executor"
// of spec.md §4.6.
//
// Unlike async_executor::Executor, which is driven cooperatively by
// whoever calls .tick()/.run(), nativeExecutor just runs each submitted
// task on its own goroutine (optionally throttled to nativeWorkerLimit
// concurrent goroutines via a semaphore) - Go's scheduler already does
// the cooperative multiplexing a hand-rolled tick loop would otherwise be
// responsible for.
type nativeExecutor struct {
	wg   sync.WaitGroup
	sema chan struct{} // nil == unbounded

	active atomic.Int64
	signal chan struct{} // buffered(1): fires whenever a task completes
}

func newNativeExecutor(workerLimit int) *nativeExecutor {
	e := &nativeExecutor{signal: make(chan struct{}, 1)}
	if workerLimit > 0 {
		e.sema = make(chan struct{}, workerLimit)
	}
	return e
}

// activeCount reports how many submitted tasks have not yet returned.
// The scheduler's main loop treats a nonzero count as "still work
// outstanding" even when every queue is momentarily empty, since a task
// may yet call SpawnLocal to hand control back to a coroutine.
func (e *nativeExecutor) activeCount() int64 {
	return e.active.Load()
}

// Listen resolves once at least one task has completed since the last
// call, draining the signal backlog after waking - the same contract as
// ThreadQueue.Listen and FuturesQueue.Listen.
func (e *nativeExecutor) Listen() <-chan struct{} {
	out := make(chan struct{})
	go func() {
		<-e.signal
		for {
			select {
			case <-e.signal:
				continue
			default:
			}
			break
		}
		close(out)
	}()
	return out
}

// NativeTask is a joinable handle to work submitted via State.Spawn, the
// analogue of async_executor::Task<T>.
type NativeTask struct {
	done chan struct{}
	err  error
}

// Wait blocks until the task's function has returned, then returns its
// error.
func (t *NativeTask) Wait() error {
	<-t.done
	return t.err
}

func (e *nativeExecutor) submit(fn func() error) *NativeTask {
	t := &NativeTask{done: make(chan struct{})}
	e.wg.Add(1)
	e.active.Add(1)
	go func() {
		defer e.wg.Done()
		if e.sema != nil {
			e.sema <- struct{}{}
			defer func() { <-e.sema }()
		}
		defer close(t.done)
		defer func() {
			select {
			case e.signal <- struct{}{}:
			default:
			}
		}()
		defer e.active.Add(-1)
		t.err = fn()
	}()
	return t
}

// wait blocks until every task submitted so far has completed. Used by
// the scheduler to make sure no native task outlives Run.
func (e *nativeExecutor) wait() {
	e.wg.Wait()
}
