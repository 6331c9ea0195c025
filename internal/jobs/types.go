package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/openpim/catalog-bulk/pkg/requestid"
)

const (
	ImportKind = "catalog_import"
	ExportKind = "catalog_export"
	PurgeKind  = "catalog_export_purge"

	DefaultMaxAttempts = 3
	DefaultJobTimeout  = time.Hour
)

// ErrNotRunnable is matched by errors returned for jobs that left PENDING. Workers drop
// such tasks instead of retrying them, which makes at-least-once redelivery harmless.
var ErrNotRunnable = errors.New("job is not runnable")

// ImportArgs is stored in river_job.args as JSON.
type ImportArgs struct {
	JobID     uuid.UUID `json:"job_id"`
	StartRow  int       `json:"start_row,omitempty"`
	BatchSize int       `json:"batch_size,omitempty"`
	// RequestID ties worker logs to the request that queued the job.
	RequestID string    `json:"request_id,omitempty"`
}

func (ImportArgs) Kind() string {
	return ImportKind
}

func (ImportArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: DefaultMaxAttempts,
	}
}

type ExportArgs struct {
	JobID     uuid.UUID `json:"job_id"`
	RequestID string    `json:"request_id,omitempty"`
}

func (ExportArgs) Kind() string {
	return ExportKind
}

func (ExportArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: DefaultMaxAttempts,
	}
}

type PurgeArgs struct{}

func (PurgeArgs) Kind() string {
	return PurgeKind
}

func (PurgeArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
	}
}

type ImportProcessor interface {
	RunImportJob(ctx context.Context, id uuid.UUID, startRow, batchSize int) error
}

type ExportProcessor interface {
	RunExportJob(ctx context.Context, id uuid.UUID) error
}

type Purger interface {
	PurgeExpiredExports(ctx context.Context) (int, error)
}

// Handlers are bound after the services are built, the services themselves hold the queue.
type Handlers struct {
	Imports ImportProcessor
	Exports ExportProcessor
	Purger  Purger
}

// Queue hands jobs to background workers. Handles are opaque and only used for Remove.
type Queue interface {
	EnqueueImport(ctx context.Context, args ImportArgs) (string, error)
	EnqueueExport(ctx context.Context, args ExportArgs) (string, error)
	// Remove drops queued work that has not started. Unknown handles are ignored.
	Remove(ctx context.Context, handle string) error
}

var errNotBound = errors.New("queue handlers are not bound")

type registry struct {
	mu       sync.RWMutex
	handlers Handlers
}

func (r *registry) bind(h Handlers) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = h
}

func (r *registry) get() Handlers {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers
}

func (r *registry) runImport(ctx context.Context, args ImportArgs) error {
	h := r.get().Imports
	if h == nil {
		return errNotBound
	}
	return h.RunImportJob(withRequestID(ctx, args.RequestID), args.JobID, args.StartRow, args.BatchSize)
}

func (r *registry) runExport(ctx context.Context, args ExportArgs) error {
	h := r.get().Exports
	if h == nil {
		return errNotBound
	}
	return h.RunExportJob(withRequestID(ctx, args.RequestID), args.JobID)
}

func (r *registry) purge(ctx context.Context) (int, error) {
	h := r.get().Purger
	if h == nil {
		return 0, errNotBound
	}
	return h.PurgeExpiredExports(ctx)
}

func withRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return requestid.ToContext(ctx, id)
}
