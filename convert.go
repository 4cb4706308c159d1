package coroja

import "github.com/dop251/goja"

// IntoCoroutine is implemented by anything that can be turned into a
// *Coroutine and pushed onto a Scheduler: an existing coroutine, a guest
// function (generator or plain), or a loadable, not-yet-run program.
// This is the Go rendering of spec.md §6's coroutine input polymorphism
// (mlua's IntoLuaThread, implemented there for LuaThread/LuaFunction/LuaChunk).
type IntoCoroutine interface {
	IntoCoroutine(rt *goja.Runtime) (*Coroutine, error)
}

// IntoCoroutine lets an already-built *Coroutine satisfy
// IntoCoroutine as itself.
func (c *Coroutine) IntoCoroutine(rt *goja.Runtime) (*Coroutine, error) {
	return c, nil
}

// GuestFunction adapts a goja.Callable (a plain function or a generator
// function value obtained from the runtime) into IntoCoroutine.
type GuestFunction struct {
	Fn goja.Callable
}

func (g GuestFunction) IntoCoroutine(rt *goja.Runtime) (*Coroutine, error) {
	return NewCoroutine(rt, g.Fn), nil
}

// GuestProgram adapts a compiled-but-not-yet-run *goja.Program (the
// goja analogue of a loadable Lua chunk) into IntoCoroutine: the first
// resume of the coroutine executes the program's top level statements
// directly, like resuming a thread built from lua.load(chunk), and the
// program's completion value becomes the coroutine's result. That value
// is not called: a program that evaluates to a function expression
// completes with the function object itself as its result.
type GuestProgram struct {
	Program *goja.Program
}

func (g GuestProgram) IntoCoroutine(rt *goja.Runtime) (*Coroutine, error) {
	fn := goja.Callable(func(this goja.Value, args ...goja.Value) (goja.Value, error) {
		return rt.RunProgram(g.Program)
	})
	return NewCoroutine(rt, fn), nil
}
