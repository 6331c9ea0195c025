package jobs_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/riverqueue/river"

	"github.com/openpim/catalog-bulk/internal/jobs"
	"github.com/openpim/catalog-bulk/pkg/requestid"
)

type recorder struct {
	mu      sync.Mutex
	imports []jobs.ImportArgs
	exports []uuid.UUID
	fail    map[uuid.UUID]error
	calls   map[uuid.UUID]int
}

func newRecorder() *recorder {
	return &recorder{fail: map[uuid.UUID]error{}, calls: map[uuid.UUID]int{}}
}

func (r *recorder) RunImportJob(ctx context.Context, id uuid.UUID, startRow, batchSize int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[id]++
	r.imports = append(r.imports, jobs.ImportArgs{JobID: id, StartRow: startRow, BatchSize: batchSize, RequestID: requestid.FromContext(ctx)})
	return r.fail[id]
}

func (r *recorder) RunExportJob(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[id]++
	r.exports = append(r.exports, id)
	return r.fail[id]
}

func (r *recorder) count(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}

var _ = Describe("job args", func() {
	It("registers distinct kinds", func() {
		Expect(jobs.ImportArgs{}.Kind()).To(Equal("catalog_import"))
		Expect(jobs.ExportArgs{}.Kind()).To(Equal("catalog_export"))
		Expect(jobs.PurgeArgs{}.Kind()).To(Equal("catalog_export_purge"))
	})

	It("uses the default queue", func() {
		opts := jobs.ImportArgs{}.InsertOpts()
		Expect(opts.Queue).To(Equal(river.QueueDefault))
		Expect(opts.MaxAttempts).To(Equal(jobs.DefaultMaxAttempts))
		Expect(jobs.PurgeArgs{}.InsertOpts().MaxAttempts).To(Equal(1))
	})
})

var _ = Describe("MemoryQueue", func() {
	var (
		q   *jobs.MemoryQueue
		rec *recorder
		ctx context.Context
	)

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(context.Background())
		DeferCleanup(cancel)

		rec = newRecorder()
		q = jobs.NewMemoryQueue(jobs.WithWorkers(2), jobs.WithMaxAttempts(3))
		q.Bind(jobs.Handlers{Imports: rec, Exports: rec})
	})

	It("runs enqueued imports and exports", func() {
		Expect(q.Start(ctx)).To(Succeed())
		importID, exportID := uuid.New(), uuid.New()

		h1, err := q.EnqueueImport(ctx, jobs.ImportArgs{JobID: importID, StartRow: 4, BatchSize: 5})
		Expect(err).To(BeNil())
		h2, err := q.EnqueueExport(ctx, jobs.ExportArgs{JobID: exportID})
		Expect(err).To(BeNil())
		Expect(h1).NotTo(Equal(h2))

		q.Drain()
		Expect(rec.imports).To(Equal([]jobs.ImportArgs{{JobID: importID, StartRow: 4, BatchSize: 5}}))
		Expect(rec.exports).To(Equal([]uuid.UUID{exportID}))
	})

	It("hands the originating request id to the worker", func() {
		Expect(q.Start(ctx)).To(Succeed())
		id := uuid.New()

		_, err := q.EnqueueImport(ctx, jobs.ImportArgs{JobID: id, RequestID: "req-42"})
		Expect(err).To(BeNil())
		q.Drain()
		Expect(rec.imports).To(ConsistOf(jobs.ImportArgs{JobID: id, RequestID: "req-42"}))
	})

	It("drops removed tasks that have not started", func() {
		id := uuid.New()
		handle, err := q.EnqueueImport(ctx, jobs.ImportArgs{JobID: id})
		Expect(err).To(BeNil())
		Expect(q.Remove(ctx, handle)).To(Succeed())
		Expect(q.Remove(ctx, "unknown")).To(Succeed())

		Expect(q.Start(ctx)).To(Succeed())
		q.Drain()
		Expect(rec.count(id)).To(Equal(0))
	})

	It("does not retry jobs that are no longer runnable", func() {
		id := uuid.New()
		rec.fail[id] = fmt.Errorf("job %s is PROCESSING: %w", id, jobs.ErrNotRunnable)
		Expect(q.Start(ctx)).To(Succeed())

		_, err := q.EnqueueImport(ctx, jobs.ImportArgs{JobID: id})
		Expect(err).To(BeNil())
		q.Drain()
		Expect(rec.count(id)).To(Equal(1))
	})

	It("retries transient failures up to the attempt limit", func() {
		id := uuid.New()
		rec.fail[id] = errors.New("connection reset")
		Expect(q.Start(ctx)).To(Succeed())

		_, err := q.EnqueueExport(ctx, jobs.ExportArgs{JobID: id})
		Expect(err).To(BeNil())
		q.Drain()
		Expect(rec.count(id)).To(Equal(3))
	})

	It("releases waiting tasks once the workers shut down", func() {
		stopCtx, stopWorkers := context.WithCancel(ctx)
		Expect(q.Start(stopCtx)).To(Succeed())
		stopWorkers()

		Eventually(func() error {
			_, err := q.EnqueueImport(ctx, jobs.ImportArgs{JobID: uuid.New()})
			return err
		}).Should(MatchError(jobs.ErrQueueStopped))

		drained := make(chan struct{})
		go func() {
			defer close(drained)
			q.Drain()
		}()
		Eventually(drained).Should(BeClosed())
	})

	It("refuses a second start", func() {
		Expect(q.Start(ctx)).To(Succeed())
		Expect(q.Start(ctx)).NotTo(Succeed())
	})
})
