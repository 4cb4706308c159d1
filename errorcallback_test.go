package coroja

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCallbackDefaultDoesNotPanic(t *testing.T) {
	cell := newErrorCallbackCell(noopLogger{})
	assert.NotPanics(t, func() {
		cell.call(&CoroutineError{Cause: errors.New("boom")})
	})
	assert.Equal(t, uint64(1), cell.calls.Load())
}

func TestErrorCallbackReplaceAndClear(t *testing.T) {
	cell := newErrorCallbackCell(noopLogger{})

	var seen *CoroutineError
	cell.replace(func(err *CoroutineError) { seen = err })

	want := &CoroutineError{Cause: errors.New("boom")}
	cell.call(want)
	assert.Same(t, want, seen)

	cell.clear()
	seen = nil
	cell.call(want)
	assert.Nil(t, seen, "a cleared callback must not fire")
}

func TestErrorCallbackCountsEveryCall(t *testing.T) {
	cell := newErrorCallbackCell(noopLogger{})
	cell.replace(func(*CoroutineError) {})

	for i := 0; i < 3; i++ {
		cell.call(&CoroutineError{Cause: errors.New("x")})
	}
	assert.Equal(t, uint64(3), cell.calls.Load())
}
