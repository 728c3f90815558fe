package rfs

import "sync"

// writeTask is one unit of work submitted to a per-key queue.
type writeTask struct {
	fn   func() error
	done chan error
}

// writeQueue drains tasks for a single canonical key in FIFO submission
// order. It is created lazily by writeQueueTable.run and self-terminates
// once its backlog is empty (spec.md §4: "write-queue table... self-
// cleaning when empty").
type writeQueue struct {
	tasks chan writeTask
}

// writeQueueTable maps a canonical resource key to its writeQueue,
// guaranteeing at most one outstanding buffered write per key at a time
// (spec.md §3 invariants, §5 ordering guarantees).
type writeQueueTable struct {
	mu     sync.Mutex
	queues map[string]*writeQueue
}

func newWriteQueueTable() *writeQueueTable {
	return &writeQueueTable{queues: make(map[string]*writeQueue)}
}

// run submits fn to the queue for key and blocks until it has executed,
// without blocking submissions against other keys.
func (t *writeQueueTable) run(key string, fn func() error) error {
	done := make(chan error, 1)

	t.mu.Lock()
	q, ok := t.queues[key]
	if !ok {
		q = &writeQueue{tasks: make(chan writeTask, 64)}
		t.queues[key] = q
		go t.drain(key, q)
	}
	// Send while still holding t.mu: drain's empty-check-and-delete runs
	// under the same lock, so this rules out drain seeing an empty queue
	// and removing it in the gap between the lookup/insert above and the
	// send below.
	q.tasks <- writeTask{fn: fn, done: done}
	t.mu.Unlock()

	return <-done
}

// drain runs tasks for key until the queue is empty, then removes it
// from the table. Removal and the "is it really empty" check happen
// under t.mu so a concurrent run() can never enqueue into a queue that
// is about to vanish without drain seeing it.
func (t *writeQueueTable) drain(key string, q *writeQueue) {
	for {
		select {
		case task := <-q.tasks:
			task.done <- task.fn()
		default:
			t.mu.Lock()
			if len(q.tasks) == 0 {
				delete(t.queues, key)
				t.mu.Unlock()
				return
			}
			t.mu.Unlock()
		}
	}
}
