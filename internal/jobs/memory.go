package jobs

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"
)

// MemoryQueue runs jobs on an in-process worker pool. Tasks are lost on restart, it
// backs sqlite deployments and tests.
type MemoryQueue struct {
	reg           *registry
	workers       int
	maxAttempts   int
	purgeInterval time.Duration

	mu        sync.Mutex
	seq       int64
	queue     []memoryTask
	cancelled map[string]bool
	wake      chan struct{}
	inflight  sync.WaitGroup
	started   bool
	stopped   bool
}

type memoryTask struct {
	handle string
	run    func(ctx context.Context) error
}

var _ Queue = (*MemoryQueue)(nil)

// ErrQueueStopped is returned by enqueue calls once the workers have shut down.
var ErrQueueStopped = errors.New("memory queue stopped")

type MemoryOpts func(q *MemoryQueue)

func WithWorkers(n int) MemoryOpts {
	return func(q *MemoryQueue) {
		q.workers = n
	}
}

func WithMaxAttempts(n int) MemoryOpts {
	return func(q *MemoryQueue) {
		q.maxAttempts = n
	}
}

func WithPurgeInterval(d time.Duration) MemoryOpts {
	return func(q *MemoryQueue) {
		q.purgeInterval = d
	}
}

func NewMemoryQueue(opts ...MemoryOpts) *MemoryQueue {
	q := &MemoryQueue{
		reg:         &registry{},
		workers:     1,
		maxAttempts: DefaultMaxAttempts,
		cancelled:   map[string]bool{},
		wake:        make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

func (q *MemoryQueue) Bind(h Handlers) {
	q.reg.bind(h)
}

// Start launches the workers. They stop when ctx is done.
func (q *MemoryQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return errors.New("memory queue already started")
	}
	q.started = true

	for i := 0; i < max(q.workers, 1); i++ {
		go q.work(ctx)
	}
	if q.purgeInterval > 0 {
		go q.purgeLoop(ctx)
	}
	return nil
}

func (q *MemoryQueue) EnqueueImport(_ context.Context, args ImportArgs) (string, error) {
	return q.push(func(ctx context.Context) error {
		return q.reg.runImport(ctx, args)
	})
}

func (q *MemoryQueue) EnqueueExport(_ context.Context, args ExportArgs) (string, error) {
	return q.push(func(ctx context.Context) error {
		return q.reg.runExport(ctx, args)
	})
}

func (q *MemoryQueue) Remove(_ context.Context, handle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.queue {
		if t.handle == handle {
			q.queue = append(q.queue[:i], q.queue[i+1:]...)
			q.inflight.Done()
			return nil
		}
	}
	q.cancelled[handle] = true
	return nil
}

// Drain blocks until every enqueued task has finished.
func (q *MemoryQueue) Drain() {
	q.inflight.Wait()
}

func (q *MemoryQueue) push(run func(ctx context.Context) error) (string, error) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return "", ErrQueueStopped
	}
	q.seq++
	handle := "mem-" + strconv.FormatInt(q.seq, 10)
	q.queue = append(q.queue, memoryTask{handle: handle, run: run})
	q.inflight.Add(1)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return handle, nil
}

func (q *MemoryQueue) pop() (memoryTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		return memoryTask{}, false
	}
	t := q.queue[0]
	q.queue = q.queue[1:]
	return t, true
}

func (q *MemoryQueue) work(ctx context.Context) {
	defer q.stop()
	for {
		t, ok := q.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
				continue
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}
		q.execute(ctx, t)
	}
}

// stop refuses further tasks and releases the ones nobody will run, so Drain returns.
func (q *MemoryQueue) stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	if len(q.queue) > 0 {
		zap.S().Named("jobs").Infow("abandoning queued tasks on shutdown", "count", len(q.queue))
	}
	for range q.queue {
		q.inflight.Done()
	}
	q.queue = nil
}

func (q *MemoryQueue) execute(ctx context.Context, t memoryTask) {
	defer q.inflight.Done()

	for attempt := 1; attempt <= max(q.maxAttempts, 1); attempt++ {
		q.mu.Lock()
		removed := q.cancelled[t.handle]
		q.mu.Unlock()
		if removed || ctx.Err() != nil {
			return
		}

		err := t.run(ctx)
		if err == nil {
			return
		}
		if errors.Is(err, ErrNotRunnable) {
			zap.S().Named("jobs").Debugw("dropping task", "handle", t.handle, "reason", err)
			return
		}
		zap.S().Named("jobs").Warnw("task failed", "handle", t.handle, "attempt", attempt, "error", err)
	}
}

func (q *MemoryQueue) purgeLoop(ctx context.Context) {
	// jittered so replicas sharing a store do not purge in lockstep
	ticker := jitterbug.New(q.purgeInterval, &jitterbug.Norm{Stdev: q.purgeInterval / 20, Mean: 0})
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := q.reg.purge(ctx); err != nil {
				zap.S().Named("jobs").Warnw("export purge failed", "error", err)
			} else if n > 0 {
				zap.S().Named("jobs").Infof("purged %d expired export artifacts", n)
			}
		}
	}
}
