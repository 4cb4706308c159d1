package coroja

import "fmt"

// ErrOutOfMemory is returned from Push/PushFront/PushBack when the
// registry that backs the thread queues has reached its configured
// capacity. See WithMaxRegistrySize.
var ErrOutOfMemory = fmt.Errorf("coroja: out of memory")

// CoroutineError wraps an error raised by a guest coroutine during a
// resume. It is the value stored in a Handle when a coroutine terminates
// abnormally, and the value passed to the error callback.
type CoroutineError struct {
	Cause error
}

func (e *CoroutineError) Error() string {
	return fmt.Sprintf("coroja: coroutine error: %v", e.Cause)
}

func (e *CoroutineError) Unwrap() error {
	return e.Cause
}

// programmerError is raised (via panic) for contract violations that are
// always bugs in the embedder, never recoverable at runtime. Every case
// in spec.md §7 tagged "ProgrammerError" panics with one of these.
type programmerError struct {
	kind string
	msg  string
}

func (e *programmerError) Error() string {
	return fmt.Sprintf("coroja: %s: %s", e.kind, e.msg)
}

const (
	errMetadataAlreadyAttached = "" +
		"runtime state already has a scheduler attached!\n" +
		"This may be caused by running multiple schedulers on the same State, " +
		"or a call to Scheduler.Run being abandoned before completion.\n" +
		"Only one scheduler can be used per State at once, and a scheduler's " +
		"Run must always be allowed to run to completion."

	errMetadataRemoved = "" +
		"runtime state metadata was unexpectedly missing during cleanup!\n" +
		"This should never happen, and indicates a bug in coroja itself."

	errSetCallbackWhenRunning = "cannot mutate the error callback while the scheduler is running"

	errExtensionOutsideRun = "" +
		"Spawn/SpawnLocal were called outside of a running Scheduler, or after " +
		"its Run method returned, or PushFront/PushBack were called on a State " +
		"with no Scheduler attached"
)

// panicDuplicateRuntime aborts with ProgrammerError: DuplicateRuntime.
func panicDuplicateRuntime() {
	panic(&programmerError{kind: "DuplicateRuntime", msg: errMetadataAlreadyAttached})
}

// panicMetadataMissing aborts with ProgrammerError: MetadataMissing.
func panicMetadataMissing() {
	panic(&programmerError{kind: "MetadataMissing", msg: errMetadataRemoved})
}

// panicCallbackMutationDuringRun aborts with ProgrammerError: CallbackMutationDuringRun.
func panicCallbackMutationDuringRun() {
	panic(&programmerError{kind: "CallbackMutationDuringRun", msg: errSetCallbackWhenRunning})
}

// panicExtensionOutsideRun aborts with ProgrammerError: ExtensionOutsideRun.
func panicExtensionOutsideRun() {
	panic(&programmerError{kind: "ExtensionOutsideRun", msg: errExtensionOutsideRun})
}
