package guest_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coroja/coroja"
	"github.com/coroja/coroja/guest"
)

func TestBinderSpawnRunsGuestCoroutine(t *testing.T) {
	rt := goja.New()
	state := coroja.NewState()
	sched := coroja.NewScheduler(rt, state)
	defer sched.Close()

	require.NoError(t, guest.New(rt, state).Bind())

	program, err := goja.Compile("main.js", `
		let ran = false;
		spawn(function() { ran = true; });
	`, false)
	require.NoError(t, err)

	handle, err := sched.PushFront(coroja.GuestProgram{Program: program})
	require.NoError(t, err)

	sched.Run()

	result := handle.Await()
	require.NoError(t, result.Err)

	ran, err := rt.RunString(`ran`)
	require.NoError(t, err)
	assert.True(t, ran.ToBoolean(), "the spawned coroutine must have run")
}

func TestBinderSleepSuspendsUntilTimerFires(t *testing.T) {
	rt := goja.New()
	state := coroja.NewState()
	sched := coroja.NewScheduler(rt, state)
	defer sched.Close()

	require.NoError(t, guest.New(rt, state).Bind())

	program, err := goja.Compile("main.js", `
		(function*() {
			yield sleep(1);
			return "woke up";
		})
	`, false)
	require.NoError(t, err)

	v, err := rt.RunProgram(program)
	require.NoError(t, err)
	fn, ok := goja.AssertFunction(v)
	require.True(t, ok)

	handle, err := sched.PushFront(coroja.GuestFunction{Fn: fn})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		sched.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not complete after sleep")
	}

	result := handle.Await()
	require.NoError(t, result.Err)
	require.Len(t, result.Values, 1)
	assert.Equal(t, "woke up", result.Values[0])
}

// Example demonstrates binding spawn/sleep onto a fresh runtime and
// running a small guest script to completion, mirroring the reference
// crate's doc examples for IntoLuaThread usage.
func Example() {
	rt := goja.New()
	state := coroja.NewState()
	sched := coroja.NewScheduler(rt, state)
	defer sched.Close()

	if err := guest.New(rt, state).Bind(); err != nil {
		panic(err)
	}

	program, err := goja.Compile("main.js", `
		(function() { return 1 + 1; })
	`, false)
	if err != nil {
		panic(err)
	}

	v, err := rt.RunProgram(program)
	if err != nil {
		panic(err)
	}
	fn, _ := goja.AssertFunction(v)

	handle, err := sched.PushFront(coroja.GuestFunction{Fn: fn})
	if err != nil {
		panic(err)
	}

	sched.Run()

	result := handle.Await()
	fmt.Println(result.Values[0])
	// Output: 2
}
