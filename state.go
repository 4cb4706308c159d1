package coroja

import (
	"sync"
	"weak"

	"github.com/dop251/goja"
)

// State is the Go stand-in for mlua's per-Lua-state "app data" slots:
// goja.Runtime has no equivalent generic app-data store, so coroja keeps
// a side struct, one per *goja.Runtime an embedder wants to drive a
// Scheduler against. It is exactly the "per-interpreter metadata" spec.md
// §3 and §4.6 describe: the two thread queues and the error callback are
// attached for the lifetime of a Scheduler (until Close), while weak
// references to the native executor and the futures queue are attached
// only while Run is actually executing.
//
// Exactly one Scheduler may be attached to a State at a time. Attempting
// to construct a second Scheduler on a State that already has one
// attached is a programmer error (spec.md §7: DuplicateRuntime).
type State struct {
	mu sync.Mutex

	queueSpawn *ThreadQueue
	queueDefer *ThreadQueue
	errorCB    *errorCallbackCell
	status     *statusCell
	attached   bool

	execWeak    weak.Pointer[nativeExecutor]
	futuresWeak weak.Pointer[FuturesQueue]
	runAttached bool
}

// NewState creates an empty State with no Scheduler attached.
func NewState() *State {
	return &State{}
}

// attachScheduler installs the queues, error callback and status for a
// new Scheduler. Panics with DuplicateRuntime if one is already attached.
func (st *State) attachScheduler(spawn, defer_ *ThreadQueue, cb *errorCallbackCell, status *statusCell) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.attached {
		panicDuplicateRuntime()
	}

	st.queueSpawn = spawn
	st.queueDefer = defer_
	st.errorCB = cb
	st.status = status
	st.attached = true
}

// detachScheduler removes the queues/callback/status, the Go analogue of
// the reference Runtime's Drop impl. Must be called after Run returns
// (or is abandoned) before a new Scheduler may be attached to the same
// State.
func (st *State) detachScheduler() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.attached {
		panicMetadataMissing()
	}
	st.queueSpawn = nil
	st.queueDefer = nil
	st.errorCB = nil
	st.status = nil
	st.attached = false
}

// attachExecutors publishes weak references to the native executor and
// futures queue, for the duration of Run. Spawn and SpawnLocal resolve
// against these; PushFront and PushBack use the queues attached by
// attachScheduler instead.
func (st *State) attachExecutors(exec *nativeExecutor, futs *FuturesQueue) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.execWeak.Value() != nil || st.futuresWeak.Value() != nil {
		panicDuplicateRuntime()
	}

	st.execWeak = weak.Make(exec)
	st.futuresWeak = weak.Make(futs)
	st.runAttached = true
}

// detachExecutors removes the weak executor references at the end of
// Run, so that any later Spawn/SpawnLocal call fails loudly (spec.md
// §5: "weak references published to the interpreter become unupgradable
// after run returns").
func (st *State) detachExecutors() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.runAttached {
		panicMetadataMissing()
	}
	st.execWeak = weak.Pointer[nativeExecutor]{}
	st.futuresWeak = weak.Pointer[FuturesQueue]{}
	st.runAttached = false
}

// PushFront pushes thread onto the front (spawn) queue, for use by host
// extension code running while a Scheduler drives this State. Panics
// with ExtensionOutsideRun if no Scheduler is attached.
func (st *State) PushFront(rt *goja.Runtime, thread IntoCoroutine, args ...goja.Value) (*Handle, error) {
	return st.push(rt, st.spawnQueue(), thread, args)
}

// PushBack defers thread onto the back (defer) queue. See PushFront.
func (st *State) PushBack(rt *goja.Runtime, thread IntoCoroutine, args ...goja.Value) (*Handle, error) {
	return st.push(rt, st.deferQueue(), thread, args)
}

func (st *State) spawnQueue() *ThreadQueue {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.attached {
		panicExtensionOutsideRun()
	}
	return st.queueSpawn
}

func (st *State) deferQueue() *ThreadQueue {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.attached {
		panicExtensionOutsideRun()
	}
	return st.queueDefer
}

func (st *State) push(rt *goja.Runtime, q *ThreadQueue, thread IntoCoroutine, args []goja.Value) (*Handle, error) {
	co, err := thread.IntoCoroutine(rt)
	if err != nil {
		return nil, err
	}
	h := NewHandle()
	if err := q.Push(coroutineItem{coroutine: co, args: args, handle: h}); err != nil {
		return nil, err
	}
	return h, nil
}

// Spawn submits a Send-safe native task to the native executor and
// returns a NativeTask that can be joined. Panics with
// ExtensionOutsideRun if the executor has been dropped (Run is not
// executing) - matching spec.md §6's "panics outside a run."
func (st *State) Spawn(fn func() error) *NativeTask {
	st.mu.Lock()
	execWeak := st.execWeak
	st.mu.Unlock()

	exec := execWeak.Value()
	if exec == nil {
		panicExtensionOutsideRun()
	}
	return exec.submit(fn)
}

// SpawnLocal submits a thread-local future to the futures queue (C2), to
// be adopted by the scheduler's coroutine dispatcher on its next drain.
// Panics with ExtensionOutsideRun if the futures queue has been dropped.
func (st *State) SpawnLocal(fn func()) {
	st.mu.Lock()
	futsWeak := st.futuresWeak
	st.mu.Unlock()

	futs := futsWeak.Value()
	if futs == nil {
		panicExtensionOutsideRun()
	}
	futs.Push(localFuture(fn))
}
