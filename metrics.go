package coroja

import "sync/atomic"

// Metrics holds the counters spec.md §6 names as the content of this
// runtime's diagnostics: tasks_processed, tasks_spawned, futures_spawned.
// Grounded on the reference workspace's eventloop/metrics.go counter
// style, trimmed to the three names the spec actually asks for - this
// runtime has no percentile/latency tracking to justify, since it has no
// I/O poller to characterize.
type Metrics struct {
	tasksProcessed atomic.Uint64
	tasksSpawned   atomic.Uint64
	futuresSpawned atomic.Uint64
}

// Snapshot is a point-in-time read of Metrics.
type Snapshot struct {
	TasksProcessed uint64
	TasksSpawned   uint64
	FuturesSpawned uint64
}

// Snapshot reads the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		TasksProcessed: m.tasksProcessed.Load(),
		TasksSpawned:   m.tasksSpawned.Load(),
		FuturesSpawned: m.futuresSpawned.Load(),
	}
}
