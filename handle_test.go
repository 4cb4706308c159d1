package coroja

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHandleAwaitBlocksUntilComplete(t *testing.T) {
	h := NewHandle()

	_, ok := h.TryResult()
	assert.False(t, ok, "a fresh Handle must not report a result")

	done := make(chan Result, 1)
	go func() { done <- h.Await() }()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("Await returned before Complete was called")
	default:
	}

	h.Complete(Result{Values: []any{"ok"}})

	select {
	case r := <-done:
		assert.Equal(t, []any{"ok"}, r.Values)
	case <-time.After(2 * time.Second):
		t.Fatal("Await did not unblock after Complete")
	}
}

func TestHandleCompleteIsAtMostOnce(t *testing.T) {
	h := NewHandle()
	h.Complete(Result{Err: errors.New("first")})
	h.Complete(Result{Err: errors.New("second")})

	r, ok := h.TryResult()
	assert.True(t, ok)
	assert.EqualError(t, r.Err, "first")
}

func TestHandleTryResultNonBlocking(t *testing.T) {
	h := NewHandle()
	h.Complete(Result{Values: []any{1, 2, 3}})

	r, ok := h.TryResult()
	assert.True(t, ok)
	assert.Equal(t, []any{1, 2, 3}, r.Values)
}
