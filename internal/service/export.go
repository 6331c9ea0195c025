package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/openpim/catalog-bulk/internal/config"
	"github.com/openpim/catalog-bulk/internal/exporter"
	"github.com/openpim/catalog-bulk/internal/jobs"
	"github.com/openpim/catalog-bulk/internal/storage"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/internal/tabular"
	"github.com/openpim/catalog-bulk/pkg/log"
	"github.com/openpim/catalog-bulk/pkg/metrics"
	"github.com/openpim/catalog-bulk/pkg/requestid"
)

type ExportService struct {
	store store.Store
	blob  storage.Blob
	queue jobs.Queue
	clock clock.PassiveClock

	baseURL      string
	pageSize     int
	expiryWindow time.Duration
}

var (
	_ jobs.ExportProcessor = (*ExportService)(nil)
	_ jobs.Purger          = (*ExportService)(nil)
)

func NewExportService(s store.Store, blob storage.Blob, queue jobs.Queue, cfg *config.Config) *ExportService {
	return &ExportService{
		store:        s,
		blob:         blob,
		queue:        queue,
		clock:        clock.RealClock{},
		baseURL:      cfg.Service.BaseUrl,
		pageSize:     cfg.Export.PageSize,
		expiryWindow: cfg.Export.ExpiryWindow,
	}
}

func (s *ExportService) WithClock(c clock.PassiveClock) *ExportService {
	s.clock = c
	return s
}

type ExportRequest struct {
	EntityType model.EntityType
	Format     model.ExportFormat
	Owner      string
	Filter     model.ExportFilter
	Fields     []string
	Options    model.ExportOptions
}

// CreateExportJob persists a PENDING job and queues it. The expiry is fixed here, not
// when the artifact is written.
func (s *ExportService) CreateExportJob(ctx context.Context, req ExportRequest) (*model.ExportJob, error) {
	tracer := log.NewDebugLogger("export_service").
		WithContext(ctx).
		Operation("create_export_job").
		WithString("entity_type", string(req.EntityType)).
		WithString("format", string(req.Format)).
		Build()

	exp, err := exporter.New(req.EntityType, s.store)
	if err != nil {
		return nil, NewErrInvalidRequest("%s", err)
	}
	format, ok := model.ParseExportFormat(string(req.Format))
	if !ok {
		return nil, NewErrInvalidRequest("unknown export format %q", req.Format)
	}
	req.Format = format
	if req.Options.Delimiter != "" && utf8.RuneCountInString(req.Options.Delimiter) != 1 {
		return nil, NewErrInvalidRequest("delimiter must be a single character, got %q", req.Options.Delimiter)
	}
	if _, err := exp.Columns(ctx, exporter.Request{Fields: req.Fields, Options: req.Options}); err != nil {
		return nil, NewErrInvalidRequest("%s", err)
	}

	created, err := s.store.ExportJob().Create(ctx, model.ExportJob{
		EntityType: req.EntityType,
		Format:     req.Format,
		Status:     model.JobStatusPending,
		Owner:      req.Owner,
		Filters:    model.MakeJSONField(req.Filter),
		Fields:     model.MakeJSONField(req.Fields),
		Options:    model.MakeJSONField(req.Options),
		ExpiresAt:  s.clock.Now().Add(s.expiryWindow),
	})
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}
	metrics.IncreaseJobTransition(metrics.ExportKind, string(model.JobStatusPending))

	handle, err := s.queue.EnqueueExport(ctx, jobs.ExportArgs{JobID: created.ID, RequestID: requestid.FromContext(ctx)})
	if err != nil {
		tracer.Error(err).WithString("step", "enqueue").Log()
		s.fail(ctx, created.ID, model.JobStatusPending, fmt.Errorf("failed to queue job: %w", err))
		return nil, err
	}
	if err := s.store.ExportJob().SetQueueJobID(ctx, created.ID, handle); err != nil {
		return nil, err
	}
	created.QueueJobID = handle

	tracer.Success().WithUUID("job_id", created.ID).Log()
	return created, nil
}

// RunExportJob claims a PENDING export, streams it into a temp file and stores the
// result as the job artifact.
func (s *ExportService) RunExportJob(ctx context.Context, id uuid.UUID) error {
	tracer := log.NewDebugLogger("export_service").
		WithContext(ctx).
		Operation("run_export_job").
		WithUUID("job_id", id).
		Build()

	started := s.clock.Now()
	job, err := s.store.ExportJob().Transition(ctx, id, []model.JobStatus{model.JobStatusPending}, model.JobStatusProcessing, map[string]any{
		"started_at": started,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConditionFailed):
			return NewErrJobState(id, job.Status, opProcess)
		case errors.Is(err, store.ErrRecordNotFound):
			return fmt.Errorf("%w: %w", jobs.ErrNotRunnable, NewErrExportJobNotFound(id))
		default:
			return err
		}
	}
	metrics.IncreaseJobTransition(metrics.ExportKind, string(model.JobStatusProcessing))
	defer func() {
		metrics.ObserveJobDuration(metrics.ExportKind, string(job.EntityType), s.clock.Since(started).Seconds())
	}()

	written, size, err := s.build(ctx, job)
	switch {
	case err == nil:
		tracer.Step("artifact_stored").WithInt("records", written).WithInt64("size", size).Log()
		s.complete(ctx, job, written, size)
	case errors.Is(err, exporter.ErrStopped):
		tracer.Step("stopped").Log()
		_ = deleteBlob(ctx, s.blob, job.FileKey)
	default:
		tracer.Error(err).Log()
		s.fail(ctx, job.ID, model.JobStatusProcessing, err)
		_ = deleteBlob(ctx, s.blob, job.FileKey)
	}

	tracer.Success().Log()
	return nil
}

func (s *ExportService) build(ctx context.Context, job *model.ExportJob) (int, int64, error) {
	exp, err := exporter.New(job.EntityType, s.store)
	if err != nil {
		return 0, 0, err
	}
	format := tabularFormat(job.Format)
	opts := job.OptionsData()

	tmp, err := os.CreateTemp("", "catalog-bulk-export-*")
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	w, err := tabular.NewWriter(format, tmp, writerOptions(job.EntityType, opts))
	if err != nil {
		return 0, 0, err
	}
	written, err := exporter.NewBuilder(exp, s.pageSize).Build(ctx, w, exporter.Request{
		Filter:  job.FilterData(),
		Fields:  job.FieldsData(),
		Options: opts,
	}, func(ctx context.Context, processed, total int) error {
		return s.store.ExportJob().UpdateProgress(ctx, job.ID, processed, total)
	})
	if err != nil {
		return written, 0, err
	}
	if err := w.Close(); err != nil {
		return written, 0, err
	}
	metrics.IncreaseExportRecords(string(job.EntityType), written)

	size, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return written, 0, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return written, 0, err
	}

	job.FileName = fmt.Sprintf("%s_export_%s%s", job.EntityType, s.clock.Now().UTC().Format("20060102-150405"), format.Extension())
	job.FileKey = exportKey(job)
	stored, err := s.blob.Put(ctx, job.FileKey, tmp, size, format.ContentType())
	if err != nil {
		return written, 0, fmt.Errorf("failed to store artifact: %w", err)
	}
	return written, stored, nil
}

func (s *ExportService) complete(ctx context.Context, job *model.ExportJob, written int, size int64) {
	ctx = context.WithoutCancel(ctx)
	_, err := s.store.ExportJob().Transition(ctx, job.ID, []model.JobStatus{model.JobStatusProcessing}, model.JobStatusCompleted, map[string]any{
		"processed_records": written,
		"file_name":         job.FileName,
		"file_key":          job.FileKey,
		"file_size":         size,
		"download_url":      fmt.Sprintf("%s/api/v1/exports/%s/download", s.baseURL, job.ID),
		"completed_at":      s.clock.Now(),
	})
	switch {
	case errors.Is(err, store.ErrConditionFailed):
		// cancelled after the last page, the artifact is not reachable any more
		_ = deleteBlob(ctx, s.blob, job.FileKey)
	case err != nil:
		zap.S().Named("export_service").Errorw("failed to complete export job", "job_id", job.ID, "error", err)
	default:
		metrics.IncreaseJobTransition(metrics.ExportKind, string(model.JobStatusCompleted))
	}
}

func (s *ExportService) fail(ctx context.Context, id uuid.UUID, from model.JobStatus, cause error) {
	ctx = context.WithoutCancel(ctx)
	_, err := s.store.ExportJob().Transition(ctx, id, []model.JobStatus{from}, model.JobStatusFailed, map[string]any{
		"error_message": cause.Error(),
		"completed_at":  s.clock.Now(),
	})
	switch {
	case errors.Is(err, store.ErrConditionFailed):
	case err != nil:
		zap.S().Named("export_service").Errorw("failed to mark export job as failed", "job_id", id, "cause", cause, "error", err)
	default:
		metrics.IncreaseJobTransition(metrics.ExportKind, string(model.JobStatusFailed))
	}
}

func (s *ExportService) GetExportJob(ctx context.Context, id uuid.UUID) (*model.ExportJob, error) {
	job, err := s.store.ExportJob().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrExportJobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}

func (s *ExportService) ListExportJobs(ctx context.Context, filter JobFilter) (model.ExportJobList, error) {
	f, opts := filter.query()
	return s.store.ExportJob().List(ctx, f, opts)
}

func (s *ExportService) CancelExportJob(ctx context.Context, id uuid.UUID) (*model.ExportJob, error) {
	job, err := s.store.ExportJob().Transition(ctx, id,
		[]model.JobStatus{model.JobStatusPending, model.JobStatusProcessing},
		model.JobStatusCancelled,
		map[string]any{"completed_at": s.clock.Now()},
	)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConditionFailed):
			return nil, NewErrJobState(id, job.Status, opCancel)
		case errors.Is(err, store.ErrRecordNotFound):
			return nil, NewErrExportJobNotFound(id)
		default:
			return nil, err
		}
	}
	metrics.IncreaseJobTransition(metrics.ExportKind, string(model.JobStatusCancelled))

	if job.QueueJobID != "" {
		if err := s.queue.Remove(ctx, job.QueueJobID); err != nil {
			zap.S().Named("export_service").Warnw("failed to remove queued task", "job_id", id, "handle", job.QueueJobID, "error", err)
		}
	}
	return job, nil
}

// DownloadExport checks state, then expiry, then the artifact. An expired export is
// reported as expired even while its artifact still exists.
func (s *ExportService) DownloadExport(ctx context.Context, id uuid.UUID) (*Download, error) {
	job, err := s.GetExportJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusCompleted {
		return nil, NewErrJobState(id, job.Status, opDownload)
	}
	if job.IsExpired(s.clock.Now()) {
		return nil, NewErrExportExpired(id)
	}
	if job.FileKey == "" {
		return nil, NewErrArtifactMissing(id, job.FileKey)
	}

	body, err := s.blob.Get(ctx, job.FileKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewErrArtifactMissing(id, job.FileKey)
		}
		return nil, err
	}
	return &Download{
		Name:        job.FileName,
		ContentType: tabularFormat(job.Format).ContentType(),
		Size:        job.FileSize,
		Body:        body,
	}, nil
}

// PurgeExpiredExports deletes the artifacts of expired exports. The records stay, so
// downloads keep reporting them as expired.
func (s *ExportService) PurgeExpiredExports(ctx context.Context) (int, error) {
	expired, err := s.store.ExportJob().List(ctx,
		store.NewJobQueryFilter().ByStatus(model.JobStatusCompleted).ExpiredBefore(s.clock.Now()).WithArtifact(),
		nil,
	)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, job := range expired {
		if err := s.blob.Delete(ctx, job.FileKey); err != nil {
			zap.S().Named("export_service").Warnw("failed to purge export artifact", "job_id", job.ID, "key", job.FileKey, "error", err)
			continue
		}
		purged++
	}
	if purged > 0 {
		zap.S().Named("export_service").Infow("purged expired export artifacts", "count", purged)
	}
	return purged, nil
}

func tabularFormat(f model.ExportFormat) tabular.Format {
	switch f {
	case model.FormatExcel:
		return tabular.FormatXLSX
	case model.FormatJSON:
		return tabular.FormatJSON
	default:
		return tabular.FormatCSV
	}
}

func writerOptions(entityType model.EntityType, opts model.ExportOptions) tabular.WriterOptions {
	wo := tabular.WriterOptions{Encoding: opts.Encoding, SheetName: string(entityType)}
	if opts.Delimiter != "" {
		wo.Delimiter, _ = utf8.DecodeRuneInString(opts.Delimiter)
	}
	return wo
}
