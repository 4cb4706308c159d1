package coroja

import "sync"

// handleState is the state machine described by spec.md §3:
// {Pending, Fulfilled, Taken}.
type handleState int32

const (
	handlePending handleState = iota
	handleFulfilled
	handleTaken
)

// Result is what a Handle resolves to: the coroutine's final return
// values on success, or a non-nil Err on failure (a *CoroutineError).
type Result struct {
	Values []any
	Err    error
}

// Handle is the single-producer/single-consumer result slot returned by
// PushFront/PushBack. Complete is called exactly once, by the Runner that
// drove the associated coroutine to completion; Await may be called any
// number of times, from any number of goroutines, but only the contract
// "at least one await observes the value" is guaranteed for concurrent
// awaiters - this mirrors spec.md §4.3 exactly.
type Handle struct {
	once   sync.Once
	done   chan struct{}
	result Result

	mu    sync.Mutex
	taken bool
}

// NewHandle creates a Pending Handle.
func NewHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Complete fulfills the handle. Only the first call has any effect,
// guaranteeing invariant 8.3 (at-most-once fulfillment); later calls are
// no-ops, matching spec.md's "a handle is fulfilled at most once."
func (h *Handle) Complete(result Result) {
	h.once.Do(func() {
		h.result = result
		close(h.done)
	})
}

// Await blocks until Complete has been called, then returns the stored
// result. An already-fulfilled Handle returns immediately.
func (h *Handle) Await() Result {
	<-h.done
	h.mu.Lock()
	h.taken = true
	h.mu.Unlock()
	return h.result
}

// TryResult returns the stored result and true if the handle is already
// fulfilled, without blocking.
func (h *Handle) TryResult() (Result, bool) {
	select {
	case <-h.done:
		h.mu.Lock()
		h.taken = true
		h.mu.Unlock()
		return h.result, true
	default:
		return Result{}, false
	}
}
