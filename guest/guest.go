// Package guest binds coroja's host extension points (State.PushFront,
// State.Spawn, State.SpawnLocal) onto a *goja.Runtime's global scope, the
// way goja-eventloop's Adapter binds setTimeout/setInterval/Promise: a
// small set of functions that guest scripts call directly, each of which
// forwards to the coroja.State attached for this runtime's Scheduler.
//
// This is deliberately a separate package from coroja itself: the core
// scheduler has no opinion on what globals, if any, a guest script sees,
// exactly as spec.md §1 scopes "what globals are exposed to the guest
// language" as a non-goal of the scheduler proper.
package guest

import (
	"time"

	"github.com/dop251/goja"

	"github.com/coroja/coroja"
)

// Binder installs coroja's guest-facing globals (spawn, sleep) onto a
// *goja.Runtime, forwarding to the coroja.State attached for that
// runtime's Scheduler.
type Binder struct {
	rt    *goja.Runtime
	state *coroja.State
}

// New creates a Binder for rt, backed by state.
func New(rt *goja.Runtime, state *coroja.State) *Binder {
	return &Binder{rt: rt, state: state}
}

// Bind installs spawn and sleep as globals on the runtime.
func (b *Binder) Bind() error {
	if err := b.rt.Set("spawn", b.spawn); err != nil {
		return err
	}
	if err := b.rt.Set("sleep", b.sleep); err != nil {
		return err
	}
	return nil
}

// spawn(fn, ...args) pushes fn as a new coroutine onto the spawn queue,
// to be dispatched on the scheduler's next tick. It is the guest-facing
// equivalent of State.PushFront, mirroring Lua's coroutine.create plus an
// implicit resume scheduled for "soon".
func (b *Binder) spawn(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(b.rt.NewTypeError("spawn requires a function as its first argument"))
	}

	args := call.Arguments
	if len(args) > 0 {
		args = args[1:]
	}

	_, err := b.state.PushFront(b.rt, coroja.GuestFunction{Fn: fn}, args...)
	if err != nil {
		panic(b.rt.NewGoError(err))
	}
	return goja.Undefined()
}

// sleep(ms) returns a host future that the coroutine dispatcher (coroja's
// Runner) recognizes when yielded: `yield sleep(100)` suspends the
// current coroutine until a native task has slept for the requested
// duration, then resumes it with no arguments. This is the guest
// extension point spec.md §4.5 calls "the single suspension point inside
// the scheduler's tasks", exercised here via State.Spawn (so the actual
// waiting happens off the goja goroutine) and State.SpawnLocal (so the
// future's resolution handoff back into guest code happens on the
// correct goroutine).
func (b *Binder) sleep(call goja.FunctionCall) goja.Value {
	ms := call.Argument(0).ToInteger()
	if ms < 0 {
		ms = 0
	}
	dur := time.Duration(ms) * time.Millisecond

	fut := coroja.NewHostFuture()
	b.state.Spawn(func() error {
		time.Sleep(dur)
		b.state.SpawnLocal(func() {
			fut.Resolve(nil, nil)
		})
		return nil
	})
	return b.rt.ToValue(fut)
}
