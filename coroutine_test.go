package coroja

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileCallable(t *testing.T, rt *goja.Runtime, src string) goja.Callable {
	t.Helper()
	v, err := rt.RunString(src)
	require.NoError(t, err)
	fn, ok := goja.AssertFunction(v)
	require.True(t, ok, "expected %q to evaluate to a callable", src)
	return fn
}

func TestCoroutinePlainFunctionRunsToCompletionOnFirstResume(t *testing.T) {
	rt := goja.New()
	fn := compileCallable(t, rt, `(function(x) { return x + 1; })`)

	co := NewCoroutine(rt, fn)
	assert.True(t, co.Resumable())

	res, err := co.step([]goja.Value{rt.ToValue(41)})
	require.NoError(t, err)
	assert.True(t, res.done)
	assert.Equal(t, int64(42), res.value.ToInteger())
	assert.False(t, co.Resumable())
	assert.Equal(t, CoroutineDead, co.Status())
}

func TestCoroutineGeneratorYieldsThenCompletes(t *testing.T) {
	rt := goja.New()
	fn := compileCallable(t, rt, `(function*(x) {
		const y = yield x + 1;
		return y * 2;
	})`)

	co := NewCoroutine(rt, fn)

	res, err := co.step([]goja.Value{rt.ToValue(10)})
	require.NoError(t, err)
	assert.False(t, res.done)
	assert.Equal(t, int64(11), res.value.ToInteger())
	assert.True(t, co.Resumable())
	assert.Equal(t, CoroutineResumable, co.Status())

	res, err = co.step([]goja.Value{rt.ToValue(5)})
	require.NoError(t, err)
	assert.True(t, res.done)
	assert.Equal(t, int64(10), res.value.ToInteger())
	assert.False(t, co.Resumable())
}

func TestCoroutineThrowMarksDead(t *testing.T) {
	rt := goja.New()
	fn := compileCallable(t, rt, `(function() { throw new Error("nope"); })`)

	co := NewCoroutine(rt, fn)
	_, err := co.step(nil)
	require.Error(t, err)
	assert.False(t, co.Resumable())
	assert.Equal(t, CoroutineDead, co.Status())
}

func TestCoroutineCloseStopsGenerator(t *testing.T) {
	rt := goja.New()
	fn := compileCallable(t, rt, `(function*() { yield 1; yield 2; })`)

	co := NewCoroutine(rt, fn)
	_, err := co.step(nil)
	require.NoError(t, err)
	require.True(t, co.Resumable())

	co.Close()
	assert.False(t, co.Resumable())
	assert.Equal(t, CoroutineDead, co.Status())
}

func TestCoroutineNotResumableAfterDeadReturnsError(t *testing.T) {
	rt := goja.New()
	fn := compileCallable(t, rt, `(function() { return 1; })`)

	co := NewCoroutine(rt, fn)
	_, err := co.step(nil)
	require.NoError(t, err)

	_, err = co.step(nil)
	assert.Error(t, err)
}
