package coroja

// Option configures a Scheduler at construction time. Grounded on the
// reference workspace's eventloop/options.go functional-options pattern.
type Option func(*options)

type options struct {
	logger           Logger
	maxRegistrySize  int // 0 == unbounded
	nativeWorkerLimit int // 0 == unbounded (goroutine-per-task)
}

func defaultOptions() *options {
	return &options{
		logger:            noopLogger{},
		maxRegistrySize:   0,
		nativeWorkerLimit: 0,
	}
}

// WithLogger installs a structured Logger. The default is a no-op logger;
// use NewLogger to get the reference stack's slog+logiface backed
// implementation, or pass your own.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l == nil {
			l = noopLogger{}
		}
		o.logger = l
	}
}

// WithMaxRegistrySize bounds how many (coroutine, args) pairs may be
// queued but not yet drained at once, across both the spawn and defer
// queues. Zero (the default) means unbounded. Exceeding the limit causes
// Push to return ErrOutOfMemory, modeling spec.md §7's "registry
// insertion on push_*" failure mode for a host language whose maps do not
// otherwise have a fixed capacity.
func WithMaxRegistrySize(n int) Option {
	return func(o *options) {
		o.maxRegistrySize = n
	}
}

// WithNativeWorkerLimit bounds the number of goroutines the Scheduler's
// native (Send-safe) executor will run concurrently for tasks submitted
// via State.Spawn. Zero (the default) spawns one goroutine per task, akin
// to letting async_executor::Executor be driven by as many threads as the
// runtime provides; set this to pace background work explicitly.
func WithNativeWorkerLimit(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.nativeWorkerLimit = n
	}
}
