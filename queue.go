package coroja

import (
	"sync"

	"github.com/dop251/goja"
	"github.com/coroja/coroja/internal/registry"
)

// coroutineItem is what the registry stores per pushed coroutine: the
// coroutine itself, the argument tuple to resume it with, and the handle
// that will eventually receive its result.
type coroutineItem struct {
	coroutine *Coroutine
	args      []goja.Value
	handle    *Handle
}

// ThreadQueue is an unbounded MPSC queue of registry keys, each
// resolving to a coroutineItem, preserving push order across drains.
//
// The push/drain pair is grounded on the reference workspace's
// eventloop.Loop "GOJA-STYLE QUEUE" double-buffer (auxJobs/auxJobsSpare):
// Push locks a mutex, appends to the active slice, unlocks, then signals;
// Drain locks, swaps active and spare, unlocks, and returns the old
// active slice without copying it. That reference implementation swaps
// two identically-typed slices within one loop goroutine; here the same
// swap happens across arbitrary producer goroutines and the single
// scheduler-owned consumer, which is safe because the mutex serializes
// every access to the active slice.
type ThreadQueue struct {
	reg     *registry.Registry[coroutineItem]
	metrics *Metrics

	mu     sync.Mutex
	active []registry.Key
	spare  []registry.Key

	signal chan struct{} // buffered(1): push-then-notify, consumer coalesces
}

// NewThreadQueue creates an empty ThreadQueue backed by reg, recording
// every push against metrics.
func NewThreadQueue(reg *registry.Registry[coroutineItem], metrics *Metrics) *ThreadQueue {
	return &ThreadQueue{
		reg:     reg,
		metrics: metrics,
		signal:  make(chan struct{}, 1),
	}
}

// Push stores item in the registry and enqueues its key. The item is
// published to the registry, then appended to the active slice, then the
// signal is notified - in that order - so that any consumer woken by the
// signal is guaranteed to observe the item on the next Drain (spec.md §3's
// push-before-notify invariant).
func (q *ThreadQueue) Push(item coroutineItem) error {
	key, ok := q.reg.Insert(item)
	if !ok {
		return ErrOutOfMemory
	}

	q.mu.Lock()
	q.active = append(q.active, key)
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.tasksSpawned.Add(1)
	}

	select {
	case q.signal <- struct{}{}:
	default:
		// already has a pending notification; coalesces naturally
	}
	return nil
}

// Drain consumes every currently-queued item exactly once, in FIFO push
// order, resolving each key back to its coroutineItem and removing it
// from the registry.
func (q *ThreadQueue) Drain() []coroutineItem {
	q.mu.Lock()
	keys := q.active
	q.active, q.spare = q.spare[:0], q.active
	q.mu.Unlock()

	if len(keys) == 0 {
		return nil
	}

	items := make([]coroutineItem, 0, len(keys))
	for _, k := range keys {
		item, ok := q.reg.Take(k)
		if !ok {
			panicMetadataMissing()
		}
		items = append(items, item)
	}
	return items
}

// Listen resolves once at least one item has been pushed since the last
// Drain or Listen. After waking, it drains the signal channel to empty,
// so a batch of pushes that happened while nobody was listening collapses
// into a single resolution rather than one resolution per push - this is
// spec.md's Design Notes open question, resolved as required behavior.
func (q *ThreadQueue) Listen() <-chan struct{} {
	out := make(chan struct{})
	go func() {
		<-q.signal
		for {
			select {
			case <-q.signal:
				continue
			default:
			}
			break
		}
		close(out)
	}()
	return out
}
