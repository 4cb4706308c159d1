package coroja

import "github.com/dop251/goja"

// runUntilYield drives item's coroutine one resume step: until it either
// yields a non-future value, returns, or throws. It is the Runner (C5) of
// spec.md §4.5.
//
// A *goja.Runtime is not safe for concurrent use, so every call that
// actually touches the runtime - co.step, exporting its result, and the
// valuesOf conversion below - is serialized through sched.rtMu. runUntilYield itself is safe
// to invoke from any goroutine for exactly that reason: the mutex, not the
// caller's identity, is what protects the runtime.
//
// When the coroutine yields a hostFuture (the value a host async function
// like sleep returns), runUntilYield does not block the calling goroutine
// waiting for it. Blocking here would be fatal: this function is called
// both from the scheduler's own main-loop goroutine (while draining the
// spawn/defer queues) and, recursively, from future-continuation
// goroutines, and if the main-loop goroutine ever blocked on a hostFuture
// that only the main loop's own futures-queue drain can resolve (as
// State.SpawnLocal's callers rely on), the scheduler would deadlock.
// Instead, the await is handed to a freshly spawned goroutine via
// Scheduler.awaitHostFuture, which is the Go analogue of the reference
// runtime's `local_exec.spawn(async move { run_until_yield(...) })
// .detach()` in the original scheduler's run loop: the "spawn a detached
// task to drive the rest of this resume" idea, just expressed as a raw
// goroutine instead of a cooperative task, since Go coroutines want one.
func runUntilYield(sched *Scheduler, item coroutineItem) {
	co := item.coroutine

	sched.rtMu.Lock()
	resumable := co.Resumable()
	sched.rtMu.Unlock()
	if !resumable {
		// Cancelled externally between enqueue and resume; silently
		// drop it, per spec.md §4.5's edge case.
		return
	}

	sched.rtMu.Lock()
	res, err := co.step(item.args)
	var values []any
	var fut *HostFuture
	var isFuture bool
	if err == nil {
		// Exporting a goja.Value touches the runtime too.
		if res.done {
			values = exportMulti(res.value)
		} else {
			fut, isFuture = asHostFuture(res.value)
		}
	}
	sched.rtMu.Unlock()

	if err != nil {
		cerr := &CoroutineError{Cause: err}
		item.handle.Complete(Result{Err: cerr})
		sched.errorCB.call(cerr)
		return
	}

	if res.done {
		item.handle.Complete(Result{Values: values})
		return
	}

	if !isFuture {
		// A genuine yield: this call ends here. The coroutine remains
		// Resumable; it is re-driven only if something re-enqueues it
		// onto the spawn or defer queue.
		sched.logger.Trace("coroutine yielded")
		return
	}

	sched.awaitHostFuture(item, fut)
}

// asHostFuture type-asserts a yielded goja.Value back to a *HostFuture,
// the sentinel a host async function like sleep returns to signal "await
// this before resuming me".
func asHostFuture(v goja.Value) (*HostFuture, bool) {
	if v == nil {
		return nil, false
	}
	fut, ok := v.Export().(*HostFuture)
	return fut, ok
}

// exportMulti converts a single goja return value into the Go-native
// Result.Values slice the Handle reports to host code.
func exportMulti(v goja.Value) []any {
	if v == nil || goja.IsUndefined(v) {
		return nil
	}
	return []any{v.Export()}
}

// valuesOf converts Go-native values back into goja.Value, for resuming a
// coroutine with the result of an awaited hostFuture. Caller must hold
// sched.rtMu: rt.ToValue touches the runtime.
func valuesOf(rt *goja.Runtime, vs []any) []goja.Value {
	if len(vs) == 0 {
		return nil
	}
	out := make([]goja.Value, len(vs))
	for i, v := range vs {
		out[i] = rt.ToValue(v)
	}
	return out
}
