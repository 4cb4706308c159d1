package coroja

import (
	"fmt"
	"sync/atomic"

	"github.com/dop251/goja"
)

// CoroutineStatus mirrors a guest coroutine's resumability, the Go
// analogue of mlua's LuaThreadStatus.
type CoroutineStatus int32

const (
	// CoroutineNotStarted has never been resumed.
	CoroutineNotStarted CoroutineStatus = iota
	// CoroutineResumable has yielded and is waiting to be resumed again.
	CoroutineResumable
	// CoroutineRunning is currently being driven by a Runner.
	CoroutineRunning
	// CoroutineDead has either returned, thrown, or been closed, and may
	// never be resumed again.
	CoroutineDead
)

// Coroutine is a guest "thread": a goja generator function together with
// the generator object it produces once started. goja implements
// ECMAScript generator functions (`function*`) natively, and a generator
// object's own next()/return() methods are exactly the yield/resume
// primitive spec.md §1 asks a Lua-family interpreter for - so unlike a
// hand-rolled goroutine-plus-channel bridge, stepping a Coroutine never
// leaves the goroutine that owns the *goja.Runtime, which is what keeps
// this safe: goja.Runtime is not safe for concurrent use, exactly as
// spec.md §5 requires of "the interpreter state".
type Coroutine struct {
	runtime *goja.Runtime
	fn      goja.Callable // the generator function, called once to start

	gen      *goja.Object // the generator object, set after first resume
	genNext  goja.Callable
	isGen    bool // whether fn actually produced a generator object
	finished bool // fn ran straight through (non-generator) or gen is done

	status atomic.Int32
}

// NewCoroutine wraps fn as a fresh, not-yet-started Coroutine.
func NewCoroutine(rt *goja.Runtime, fn goja.Callable) *Coroutine {
	c := &Coroutine{runtime: rt, fn: fn}
	c.status.Store(int32(CoroutineNotStarted))
	return c
}

// Status reports the coroutine's current resumability.
func (c *Coroutine) Status() CoroutineStatus {
	return CoroutineStatus(c.status.Load())
}

// Resumable reports whether the coroutine may be legally resumed right
// now: either it has never started, or it yielded and is waiting.
func (c *Coroutine) Resumable() bool {
	switch c.Status() {
	case CoroutineNotStarted, CoroutineResumable:
		return true
	default:
		return false
	}
}

// Close marks the coroutine dead without resuming it, the guest-visible
// equivalent of Lua's coroutine.close. The runner silently skips dead
// coroutines (spec.md §4.5 edge case).
func (c *Coroutine) Close() {
	c.status.Store(int32(CoroutineDead))
	if c.isGen && c.genNext != nil {
		if ret, ok := goja.AssertFunction(c.gen.Get("return")); ok {
			_, _ = ret(c.gen)
		}
	}
}

// stepResult is what one resume step of a coroutine produced.
type stepResult struct {
	done   bool
	value  goja.Value // value yielded, or the final return value if done
	err    error
}

// step resumes the coroutine once with args, running until it yields,
// returns, or throws. It never blocks on anything outside the current
// goroutine: this is a plain synchronous call into the goja runtime.
func (c *Coroutine) step(args []goja.Value) (res stepResult, err error) {
	if c.status.Load() == int32(CoroutineDead) {
		return stepResult{}, fmt.Errorf("coroja: coroutine is not resumable")
	}

	c.status.Store(int32(CoroutineRunning))
	defer func() {
		if r := recover(); r != nil {
			if gojaErr, ok := r.(*goja.Exception); ok {
				err = gojaErr
			} else {
				err = fmt.Errorf("coroja: panic resuming coroutine: %v", r)
			}
			c.status.Store(int32(CoroutineDead))
		}
	}()

	if c.gen == nil {
		// First resume: call the wrapped function. It either is a
		// generator function (returns a generator object) or a plain
		// function (runs straight through to completion).
		values := make([]goja.Value, len(args))
		copy(values, args)
		ret, callErr := c.fn(goja.Undefined(), values...)
		if callErr != nil {
			c.status.Store(int32(CoroutineDead))
			return stepResult{}, callErr
		}
		if obj, ok := ret.(*goja.Object); ok {
			if next, ok := goja.AssertFunction(obj.Get("next")); ok {
				c.gen = obj
				c.genNext = next
				c.isGen = true
				return c.driveGenerator(args)
			}
		}
		// Plain function: it already ran to completion.
		c.status.Store(int32(CoroutineDead))
		return stepResult{done: true, value: ret}, nil
	}

	return c.driveGenerator(args)
}

// driveGenerator calls gen.next(arg) and normalizes the {value, done}
// result object goja's generator protocol returns.
func (c *Coroutine) driveGenerator(args []goja.Value) (stepResult, error) {
	var arg goja.Value = goja.Undefined()
	if len(args) > 0 {
		arg = args[0]
	}
	iterResult, err := c.genNext(c.gen, arg)
	if err != nil {
		c.status.Store(int32(CoroutineDead))
		return stepResult{}, err
	}
	obj, ok := iterResult.(*goja.Object)
	if !ok {
		c.status.Store(int32(CoroutineDead))
		return stepResult{done: true, value: iterResult}, nil
	}
	done := obj.Get("done")
	isDone := done != nil && done.ToBoolean()
	value := obj.Get("value")
	if isDone {
		c.status.Store(int32(CoroutineDead))
	} else {
		c.status.Store(int32(CoroutineResumable))
	}
	return stepResult{done: isDone, value: value}, nil
}
