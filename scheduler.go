package coroja

import (
	"sync"
	"sync/atomic"

	"github.com/coroja/coroja/internal/registry"
	"github.com/dop251/goja"
)

// Scheduler is the core of coroja (spec.md §1: "The core is the
// scheduler"): it owns the two thread queues (C1), the futures queue
// (C2), the error callback (C4), the native executor, and drives the
// main loop (C6) that dispatches coroutines via the Runner (C5) until
// there is nothing left to do.
//
// A Scheduler is constructed against exactly one *goja.Runtime and its
// companion State, and may be Run at most once.
type Scheduler struct {
	rt    *goja.Runtime
	state *State

	reg        *registry.Registry[coroutineItem]
	queueSpawn *ThreadQueue
	queueDefer *ThreadQueue
	futures    *FuturesQueue
	errorCB    *errorCallbackCell
	status     *statusCell
	metrics    Metrics

	logger            Logger
	nativeWorkerLimit int

	// rtMu serializes every touch of rt: goja.Runtime is not safe for
	// concurrent use. Dispatching a coroutine (runUntilYield) and
	// resuming one after its awaited hostFuture resolves
	// (Scheduler.awaitHostFuture) both run on their own goroutines, so
	// this mutex - not goroutine identity - is what keeps the runtime
	// single-threaded. It is held only around the spans that actually
	// call into goja; it is never held across a hostFuture await.
	rtMu sync.Mutex

	// localActive/localWG/localSignal track goroutines spawned by
	// awaitHostFuture that are waiting on a hostFuture to resolve before
	// continuing a coroutine. Run's termination check and its blocking
	// select must account for them the same way they account for
	// exec.activeCount(): a coroutine suspended on sleep() has handed
	// its continuation to one of these goroutines, not to any queue.
	localActive atomic.Int64
	localWG     sync.WaitGroup
	localSignal chan struct{} // buffered(1)

	mu     sync.Mutex
	closed bool
}

// NewScheduler attaches a new Scheduler to state, backed by rt. Panics
// with ProgrammerError: DuplicateRuntime if state already has a
// Scheduler attached (spec.md §7).
func NewScheduler(rt *goja.Runtime, state *State, opts ...Option) *Scheduler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	reg := registry.New[coroutineItem](o.maxRegistrySize)
	s := &Scheduler{
		rt:                rt,
		state:             state,
		reg:               reg,
		errorCB:           newErrorCallbackCell(o.logger),
		status:            newStatusCell(),
		logger:            o.logger,
		nativeWorkerLimit: o.nativeWorkerLimit,
		localSignal:       make(chan struct{}, 1),
	}
	s.queueSpawn = NewThreadQueue(reg, &s.metrics)
	s.queueDefer = NewThreadQueue(reg, &s.metrics)
	s.futures = NewFuturesQueue(&s.metrics)

	state.attachScheduler(s.queueSpawn, s.queueDefer, s.errorCB, s.status)
	return s
}

// Status reports the Scheduler's current lifecycle state.
func (s *Scheduler) Status() Status {
	return s.status.get()
}

// Metrics returns a point-in-time snapshot of this Scheduler's counters
// (spec.md §6).
func (s *Scheduler) Metrics() Snapshot {
	return s.metrics.Snapshot()
}

// SetErrorCallback replaces the callback invoked for every coroutine
// error. Panics with ProgrammerError: CallbackMutationDuringRun if called
// while the Scheduler is running (spec.md §4.4: "may only be mutated
// before Run is called, or after it returns").
func (s *Scheduler) SetErrorCallback(cb ErrorCallback) {
	if s.status.get().IsRunning() {
		panicCallbackMutationDuringRun()
	}
	if cb == nil {
		s.errorCB.clear()
		return
	}
	s.errorCB.replace(cb)
}

// PushFront enqueues thread onto the spawn queue, to be dispatched before
// anything already on the defer queue this tick.
func (s *Scheduler) PushFront(thread IntoCoroutine, args ...goja.Value) (*Handle, error) {
	return s.state.PushFront(s.rt, thread, args...)
}

// PushBack defers thread onto the back of the dispatch order for this
// tick.
func (s *Scheduler) PushBack(thread IntoCoroutine, args ...goja.Value) (*Handle, error) {
	return s.state.PushBack(s.rt, thread, args...)
}

// Run drives the scheduler's main loop to completion: spec.md §4.6,
// steps 1-6.
//
// Each tick first exhausts the spawn queue to a fixed point: drain and
// dispatch, then drain again, repeating until a drain comes back empty.
// This is what spec.md's Scenario S2 (spawn vs. defer priority) requires:
// a coroutine spawned mid-resume of an already-spawned coroutine (S1
// spawning S2) must itself run before the tick ever looks at the defer
// queue, not merely "next tick." Only once the spawn queue is fully
// exhausted does the tick drain and dispatch the defer queue, then the
// futures queue.
//
// Dispatch itself (runUntilYield) runs synchronously on this goroutine,
// which is what makes the fixed-point drain above observable: a
// coroutine's synchronous spawn() calls land in queueSpawn before
// dispatch returns. A coroutine that yields a hostFuture does not block
// this goroutine, though - see awaitHostFuture - so a sleeping coroutine
// never holds up the rest of the tick or the loop's own termination
// check.
//
// When a tick drains nothing and no native task or hostFuture await is
// still outstanding, Run returns; otherwise it blocks on whichever
// source becomes ready first, then ticks again.
//
// Run may be called at most once per Scheduler.
func (s *Scheduler) Run() {
	s.status.start()

	exec := newNativeExecutor(s.nativeWorkerLimit)
	s.state.attachExecutors(exec, s.futures)

	s.logger.Debug("scheduler run starting")

	for {
		// Read the outstanding-work counts before draining: a native task
		// or hostFuture await pushes its work before it stops counting as
		// active, so if both counts are zero here, nothing can land in a
		// queue after the drains below have found them empty.
		idle := exec.activeCount() == 0 && s.localActive.Load() == 0

		spawnCount := s.drainSpawnToFixedPoint()

		deferItems := s.queueDefer.Drain()
		for _, item := range deferItems {
			s.dispatch(item)
		}

		futs := s.futures.Drain()
		for _, fut := range futs {
			fut()
		}

		processed := spawnCount + len(deferItems) + len(futs)
		if processed == 0 && idle {
			break
		}
		if processed == 0 {
			// Nothing runnable right now, but a native task or a
			// suspended coroutine await is still outstanding and may
			// yet call SpawnLocal/PushFront/PushBack or resolve a
			// hostFuture, handing control back to a coroutine. The
			// buffered(1) signal channels are received from directly, so
			// no listener from an earlier wait is left behind to consume
			// a later signal.
			select {
			case <-s.queueSpawn.signal:
			case <-s.queueDefer.signal:
			case <-s.futures.signal:
			case <-exec.signal:
			case <-s.localSignal:
			}
		}
	}

	exec.wait()
	s.localWG.Wait()
	s.state.detachExecutors()
	s.status.finish()
	s.logger.Debug("scheduler run complete", "tasks_processed", s.metrics.tasksProcessed.Load())
}

// drainSpawnToFixedPoint repeatedly drains and dispatches the spawn queue
// until a drain comes back empty, so that a coroutine spawned mid-resume
// of another spawned coroutine is dispatched within the same tick,
// strictly before the defer queue is ever touched. It returns the total
// number of items dispatched.
func (s *Scheduler) drainSpawnToFixedPoint() int {
	total := 0
	for {
		items := s.queueSpawn.Drain()
		if len(items) == 0 {
			return total
		}
		for _, item := range items {
			s.dispatch(item)
			total++
		}
	}
}

// dispatch resumes one coroutine item to completion, its next genuine
// yield point, or a hostFuture suspension, via runUntilYield, and records
// it as processed.
func (s *Scheduler) dispatch(item coroutineItem) {
	s.metrics.tasksProcessed.Add(1)
	runUntilYield(s, item)
}

// awaitHostFuture hands the remainder of item's resume off to a freshly
// spawned goroutine that waits for fut to resolve and then continues
// driving the coroutine. This is the suspension point spec.md §4.5
// describes, implemented so that waiting never blocks whichever goroutine
// is driving the scheduler's main loop or another coroutine's dispatch -
// see runUntilYield's doc comment for why that matters.
func (s *Scheduler) awaitHostFuture(item coroutineItem, fut *HostFuture) {
	s.localActive.Add(1)
	s.localWG.Add(1)
	go func() {
		defer s.localTaskDone()

		<-fut.done
		if fut.err != nil {
			// The awaited future itself failed; surface it as a
			// resume-time error, same as any other thrown error.
			cerr := &CoroutineError{Cause: fut.err}
			item.handle.Complete(Result{Err: cerr})
			s.errorCB.call(cerr)
			return
		}

		s.rtMu.Lock()
		args := valuesOf(item.coroutine.runtime, fut.values)
		s.rtMu.Unlock()

		runUntilYield(s, coroutineItem{coroutine: item.coroutine, args: args, handle: item.handle})
	}()
}

func (s *Scheduler) localTaskDone() {
	s.localActive.Add(-1)
	s.localWG.Done()
	select {
	case s.localSignal <- struct{}{}:
	default:
	}
}

// listenLocal resolves once at least one hostFuture-await goroutine has
// finished since the last call, draining the signal backlog after
// waking - the same contract as ThreadQueue.Listen.
func (s *Scheduler) listenLocal() <-chan struct{} {
	out := make(chan struct{})
	go func() {
		<-s.localSignal
		for {
			select {
			case <-s.localSignal:
				continue
			default:
			}
			break
		}
		close(out)
	}()
	return out
}

// Close detaches this Scheduler from its State, the Go substitute for
// the reference Runtime's Drop impl, allowing a new Scheduler to be
// attached to the same State afterward. Close must be called after Run
// returns (or instead of ever calling Run).
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.state.detachScheduler()
}
