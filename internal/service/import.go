package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/openpim/catalog-bulk/internal/config"
	"github.com/openpim/catalog-bulk/internal/importer"
	"github.com/openpim/catalog-bulk/internal/jobs"
	"github.com/openpim/catalog-bulk/internal/mapping"
	"github.com/openpim/catalog-bulk/internal/rowproc"
	"github.com/openpim/catalog-bulk/internal/storage"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/internal/tabular"
	"github.com/openpim/catalog-bulk/pkg/log"
	"github.com/openpim/catalog-bulk/pkg/metrics"
	"github.com/openpim/catalog-bulk/pkg/requestid"
)

const maxReportedIssues = 100

type ImportService struct {
	store store.Store
	blob  storage.Blob
	queue jobs.Queue
	clock clock.PassiveClock

	batchSize     int
	progressEvery int
	maxErrors     int
	previewRows   int
}

var _ jobs.ImportProcessor = (*ImportService)(nil)

func NewImportService(s store.Store, blob storage.Blob, queue jobs.Queue, cfg *config.Config) *ImportService {
	return &ImportService{
		store:         s,
		blob:          blob,
		queue:         queue,
		clock:         clock.RealClock{},
		batchSize:     cfg.Import.BatchSize,
		progressEvery: cfg.Import.ProgressEvery,
		maxErrors:     cfg.Import.MaxErrors,
		previewRows:   cfg.Import.PreviewRows,
	}
}

func (s *ImportService) WithClock(c clock.PassiveClock) *ImportService {
	s.clock = c
	return s
}

type ImportRequest struct {
	EntityType model.EntityType
	Owner      string
	// Mapping wins over a template, which wins over the owner's default template.
	// Without any of them the suggested mapping is used.
	Mapping map[string]string
	Options model.ImportOptions
}

// CreateImportJob counts the rows of the upload, snapshots the mapping and stores the
// file for the worker. The job is queued unless it is validate only.
func (s *ImportService) CreateImportJob(ctx context.Context, upload Upload, req ImportRequest) (*model.ImportJob, error) {
	tracer := log.NewDebugLogger("import_service").
		WithContext(ctx).
		Operation("create_import_job").
		WithString("entity_type", string(req.EntityType)).
		WithString("file_name", upload.Name).
		Build()

	if _, err := model.ParseEntityType(string(req.EntityType)); err != nil {
		return nil, NewErrInvalidRequest("%s", err)
	}
	ro, err := readerOptions(req.Options)
	if err != nil {
		return nil, err
	}

	sp, err := spool(upload)
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}
	defer func() { _ = sp.Close() }()

	format, _ := tabular.DetectFormat(upload.Name, "")
	rd, err := sp.open(ro)
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}
	headers := rd.Headers()
	total, err := tabular.CountRows(rd)
	_ = rd.Close()
	if err != nil {
		return nil, asFileFormatError(err)
	}
	tracer.Step("file_parsed").WithInt("total_rows", total).WithInt("columns", len(headers)).Log()

	snapshot, templateID, err := s.resolveMapping(ctx, req, headers)
	if err != nil {
		return nil, err
	}
	if result := mapping.Validate(snapshot, req.EntityType); !result.Valid {
		return nil, NewErrInvalidMapping(result.Errors)
	}

	opts := req.Options
	opts.MappingTemplateID = templateID
	job := model.ImportJob{
		ID:         uuid.New(),
		EntityType: req.EntityType,
		Status:     model.JobStatusPending,
		Owner:      req.Owner,
		FileName:   sp.name,
		FileFormat: string(format),
		FileSize:   sp.size,
		Mapping:    model.MakeJSONField(snapshot),
		Options:    model.MakeJSONField(opts),
		TotalRows:  total,
	}
	job.FileKey = importKey(&job)

	body, err := sp.rewind()
	if err != nil {
		return nil, err
	}
	if _, err := s.blob.Put(ctx, job.FileKey, body, sp.size, format.ContentType()); err != nil {
		tracer.Error(err).WithString("step", "store_upload").Log()
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	created, err := s.store.ImportJob().Create(ctx, job)
	if err != nil {
		_ = deleteBlob(ctx, s.blob, job.FileKey)
		tracer.Error(err).Log()
		return nil, err
	}
	metrics.IncreaseJobTransition(metrics.ImportKind, string(model.JobStatusPending))

	if templateID != nil {
		if err := s.store.MappingTemplate().IncrementUsage(ctx, *templateID); err != nil {
			zap.S().Named("import_service").Warnw("failed to count template usage", "template_id", templateID, "error", err)
		}
	}

	if opts.ValidateOnly {
		tracer.Success().WithUUID("job_id", created.ID).WithBool("queued", false).Log()
		return created, nil
	}

	handle, err := s.queue.EnqueueImport(ctx, jobs.ImportArgs{JobID: created.ID, BatchSize: opts.BatchSize, RequestID: requestid.FromContext(ctx)})
	if err != nil {
		tracer.Error(err).WithString("step", "enqueue").Log()
		s.fail(ctx, created, model.JobStatusPending, fmt.Errorf("failed to queue job: %w", err))
		return nil, err
	}
	if err := s.store.ImportJob().SetQueueJobID(ctx, created.ID, handle); err != nil {
		return nil, err
	}
	created.QueueJobID = handle

	tracer.Success().WithUUID("job_id", created.ID).WithBool("queued", true).Log()
	return created, nil
}

func (s *ImportService) resolveMapping(ctx context.Context, req ImportRequest, headers []string) (map[string]string, *uuid.UUID, error) {
	var tpl *model.MappingTemplate
	switch {
	case len(req.Mapping) > 0:
		return req.Mapping, nil, nil
	case req.Options.MappingTemplateID != nil:
		found, err := s.store.MappingTemplate().Get(ctx, *req.Options.MappingTemplateID)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return nil, nil, NewErrMappingNotFound(*req.Options.MappingTemplateID)
			}
			return nil, nil, err
		}
		if found.EntityType != req.EntityType {
			return nil, nil, NewErrInvalidRequest("mapping template %s is for %s, not %s", found.ID, found.EntityType, req.EntityType)
		}
		tpl = found
	default:
		found, err := s.store.MappingTemplate().GetDefault(ctx, req.EntityType, req.Owner)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil, err
		}
		tpl = found
	}

	if tpl == nil {
		return mapping.SuggestMapping(headers, req.EntityType).Mapping, nil, nil
	}
	return tpl.MappingData(), &tpl.ID, nil
}

type Preview struct {
	Headers          []string            `json:"headers"`
	Rows             []map[string]string `json:"rows"`
	SuggestedMapping mapping.Suggestion  `json:"suggestedMapping"`
}

// PreviewImport reads the first rows of the upload. Nothing is stored.
func (s *ImportService) PreviewImport(ctx context.Context, upload Upload, entityType model.EntityType, rows int, opts model.ImportOptions) (*Preview, error) {
	if _, err := model.ParseEntityType(string(entityType)); err != nil {
		return nil, NewErrInvalidRequest("%s", err)
	}
	if rows <= 0 {
		rows = s.previewRows
	}
	ro, err := readerOptions(opts)
	if err != nil {
		return nil, err
	}

	sp, err := spool(upload)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sp.Close() }()

	rd, err := sp.open(ro)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rd.Close() }()

	records, err := tabular.Preview(rd, rows)
	if err != nil {
		return nil, asFileFormatError(err)
	}
	preview := &Preview{
		Headers:          rd.Headers(),
		Rows:             make([]map[string]string, 0, len(records)),
		SuggestedMapping: mapping.SuggestMapping(rd.Headers(), entityType),
	}
	for _, rec := range records {
		preview.Rows = append(preview.Rows, rec.Map())
	}
	return preview, nil
}

type ValidationReport struct {
	Valid       bool             `json:"valid"`
	TotalRows   int              `json:"totalRows"`
	ValidRows   int              `json:"validRows"`
	InvalidRows int              `json:"invalidRows"`
	Errors      []model.RowError `json:"errors"`
	Warnings    []model.RowError `json:"warnings"`
}

// ValidateImport checks every row of the upload against the mapping without committing
// anything. Errors and warnings are capped, the counters are not.
func (s *ImportService) ValidateImport(ctx context.Context, upload Upload, entityType model.EntityType, columns map[string]string, opts model.ImportOptions) (*ValidationReport, error) {
	tracer := log.NewDebugLogger("import_service").
		WithContext(ctx).
		Operation("validate_import").
		WithString("entity_type", string(entityType)).
		Build()

	if _, err := model.ParseEntityType(string(entityType)); err != nil {
		return nil, NewErrInvalidRequest("%s", err)
	}
	ro, err := readerOptions(opts)
	if err != nil {
		return nil, err
	}

	sp, err := spool(upload)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sp.Close() }()

	rd, err := sp.open(ro)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rd.Close() }()

	if len(columns) == 0 {
		columns = mapping.SuggestMapping(rd.Headers(), entityType).Mapping
	}
	if result := mapping.Validate(columns, entityType); !result.Valid {
		return nil, NewErrInvalidMapping(result.Errors)
	}

	proc := rowproc.New(entityType, columns, rowproc.Rules{}, rowproc.NewStoreReferences(s.store))
	report := &ValidationReport{Errors: []model.RowError{}, Warnings: []model.RowError{}}
	for {
		rec, err := rd.Next()
		if err != nil {
			if isEOF(err) {
				break
			}
			return nil, asFileFormatError(err)
		}
		report.TotalRows++

		values := proc.Map(rec)
		row, err := proc.Validate(ctx, values)
		if err != nil {
			return nil, err
		}
		for _, w := range row.Warnings {
			if len(report.Warnings) < maxReportedIssues {
				report.Warnings = append(report.Warnings, model.RowError{Row: rec.Row, Field: w.Field, Message: w.Message})
			}
		}
		if row.Valid() {
			report.ValidRows++
			continue
		}
		report.InvalidRows++
		if len(report.Errors) < maxReportedIssues {
			rowErr := &rowproc.RowError{Issues: row.Errors}
			report.Errors = append(report.Errors, model.RowError{Row: rec.Row, Field: rowErr.Field(), Message: rowErr.Error(), Data: rec.Map()})
		}
	}
	report.Valid = report.InvalidRows == 0

	tracer.Success().WithInt("total_rows", report.TotalRows).WithInt("invalid_rows", report.InvalidRows).Log()
	return report, nil
}

// ProcessImportJob queues a PENDING job, optionally resuming at startRow. Jobs created
// as validate only are processed as a dry run.
func (s *ImportService) ProcessImportJob(ctx context.Context, id uuid.UUID, startRow, batchSize int) (*model.ImportJob, error) {
	job, err := s.GetImportJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusPending {
		return nil, NewErrJobState(id, job.Status, opProcess)
	}

	if job.QueueJobID != "" {
		if err := s.queue.Remove(ctx, job.QueueJobID); err != nil {
			zap.S().Named("import_service").Warnw("failed to remove queued task", "job_id", id, "handle", job.QueueJobID, "error", err)
		}
	}
	handle, err := s.queue.EnqueueImport(ctx, jobs.ImportArgs{JobID: id, StartRow: startRow, BatchSize: batchSize, RequestID: requestid.FromContext(ctx)})
	if err != nil {
		return nil, err
	}
	if err := s.store.ImportJob().SetQueueJobID(ctx, id, handle); err != nil {
		return nil, err
	}
	job.QueueJobID = handle
	return job, nil
}

// RunImportJob is the worker side of ProcessImportJob. It claims the job, so a
// redelivered task for a job that already left PENDING fails with ErrJobState.
func (s *ImportService) RunImportJob(ctx context.Context, id uuid.UUID, startRow, batchSize int) error {
	tracer := log.NewDebugLogger("import_service").
		WithContext(ctx).
		Operation("run_import_job").
		WithUUID("job_id", id).
		WithInt("start_row", startRow).
		Build()

	started := s.clock.Now()
	job, err := s.store.ImportJob().Transition(ctx, id, []model.JobStatus{model.JobStatusPending}, model.JobStatusProcessing, map[string]any{
		"started_at": started,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConditionFailed):
			return NewErrJobState(id, job.Status, opProcess)
		case errors.Is(err, store.ErrRecordNotFound):
			return fmt.Errorf("%w: %w", jobs.ErrNotRunnable, NewErrImportJobNotFound(id))
		default:
			return err
		}
	}
	metrics.IncreaseJobTransition(metrics.ImportKind, string(model.JobStatusProcessing))
	tracer.Step("claimed").WithString("entity_type", string(job.EntityType)).Log()

	err = s.runPipeline(ctx, job, startRow, batchSize)
	switch {
	case err == nil:
		s.complete(ctx, job, started)
	case errors.Is(err, importer.ErrStopped):
		// cancelled while running, the created records are kept
		tracer.Step("stopped").Log()
		_ = deleteBlob(ctx, s.blob, job.FileKey)
	default:
		tracer.Error(err).Log()
		s.fail(ctx, job, model.JobStatusProcessing, err)
	}
	metrics.ObserveJobDuration(metrics.ImportKind, string(job.EntityType), s.clock.Since(started).Seconds())

	tracer.Success().Log()
	return nil
}

func (s *ImportService) runPipeline(ctx context.Context, job *model.ImportJob, startRow, batchSize int) error {
	opts := job.OptionsData()
	ro, err := readerOptions(opts)
	if err != nil {
		return err
	}

	body, err := s.blob.Get(ctx, job.FileKey)
	if err != nil {
		return fmt.Errorf("failed to open upload %q: %w", job.FileKey, err)
	}
	defer func() { _ = body.Close() }()

	rd, err := tabular.Open(body, job.FileName, tabular.Format(job.FileFormat), ro)
	if err != nil {
		return err
	}
	defer func() { _ = rd.Close() }()

	rules, err := s.rules(ctx, opts.MappingTemplateID)
	if err != nil {
		return err
	}
	proc := rowproc.New(job.EntityType, job.MappingData(), rules, rowproc.NewStoreReferences(s.store))
	imp, err := importer.New(job.EntityType, s.store)
	if err != nil {
		return err
	}

	if batchSize <= 0 {
		batchSize = opts.BatchSize
	}
	if batchSize <= 0 {
		batchSize = s.batchSize
	}
	pipeline := importer.NewPipeline(proc, imp, importer.Options{
		BatchSize:      batchSize,
		ProgressEvery:  s.progressEvery,
		MaxErrors:      s.maxErrors,
		StartRow:       startRow,
		UpdateExisting: opts.UpdateExisting,
		DryRun:         opts.ValidateOnly,
	})

	_, err = pipeline.Run(ctx, rd, func(ctx context.Context, delta model.ImportProgress) error {
		_, err := s.store.ImportJob().ApplyProgress(ctx, job.ID, delta, s.maxErrors)
		return err
	})
	return err
}

// rules come from the template the mapping was taken from. A template deleted since
// leaves the plain mapping.
func (s *ImportService) rules(ctx context.Context, templateID *uuid.UUID) (rowproc.Rules, error) {
	if templateID == nil {
		return rowproc.Rules{}, nil
	}
	tpl, err := s.store.MappingTemplate().Get(ctx, *templateID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return rowproc.Rules{}, nil
		}
		return rowproc.Rules{}, err
	}
	return rowproc.RulesFromTemplate(tpl), nil
}

// complete and fail run detached from ctx: the outcome must be recorded even when the
// worker is shutting down.
func (s *ImportService) complete(ctx context.Context, job *model.ImportJob, started time.Time) {
	ctx = context.WithoutCancel(ctx)
	logger := zap.S().Named("import_service").With("job_id", job.ID)

	current, err := s.store.ImportJob().Get(ctx, job.ID)
	if err != nil {
		logger.Errorw("failed to read job before completion", "error", err)
		return
	}
	summary := current.SummaryData()
	summary.Skipped = current.SkipCount
	summary.Failed = current.ErrorCount
	summary.DurationMs = s.clock.Since(started).Milliseconds()

	_, err = s.store.ImportJob().Transition(ctx, job.ID, []model.JobStatus{model.JobStatusProcessing}, model.JobStatusCompleted, map[string]any{
		"completed_at": s.clock.Now(),
		"summary":      model.MakeJSONField(summary),
	})
	switch {
	case errors.Is(err, store.ErrConditionFailed):
		logger.Infow("job left processing before completion")
	case err != nil:
		logger.Errorw("failed to complete job", "error", err)
		return
	default:
		metrics.IncreaseJobTransition(metrics.ImportKind, string(model.JobStatusCompleted))
	}
	_ = deleteBlob(ctx, s.blob, job.FileKey)
}

// fail records cause as the single row 0 error, ahead of the row errors collected so far.
func (s *ImportService) fail(ctx context.Context, job *model.ImportJob, from model.JobStatus, cause error) {
	ctx = context.WithoutCancel(ctx)
	logger := zap.S().Named("import_service").With("job_id", job.ID)

	current, err := s.store.ImportJob().Get(ctx, job.ID)
	if err != nil {
		logger.Errorw("failed to read job before failing it", "error", err)
		return
	}
	rowErrors := append([]model.RowError{{Row: 0, Message: cause.Error()}}, current.ErrorsData()...)
	if len(rowErrors) > s.maxErrors && s.maxErrors > 0 {
		rowErrors = rowErrors[:s.maxErrors]
	}
	summary := current.SummaryData()
	summary.Skipped = current.SkipCount
	summary.Failed = current.ErrorCount
	if current.StartedAt != nil {
		summary.DurationMs = s.clock.Since(*current.StartedAt).Milliseconds()
	}

	_, err = s.store.ImportJob().Transition(ctx, job.ID, []model.JobStatus{from}, model.JobStatusFailed, map[string]any{
		"completed_at": s.clock.Now(),
		"errors":       model.MakeJSONField(rowErrors),
		"summary":      model.MakeJSONField(summary),
	})
	switch {
	case errors.Is(err, store.ErrConditionFailed):
		logger.Infow("job left its state before it could be failed", "cause", cause)
	case err != nil:
		logger.Errorw("failed to mark job as failed", "cause", cause, "error", err)
		return
	default:
		metrics.IncreaseJobTransition(metrics.ImportKind, string(model.JobStatusFailed))
	}
	_ = deleteBlob(ctx, s.blob, job.FileKey)
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

func (s *ImportService) GetImportJob(ctx context.Context, id uuid.UUID) (*model.ImportJob, error) {
	job, err := s.store.ImportJob().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrImportJobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}

func (s *ImportService) ListImportJobs(ctx context.Context, filter JobFilter) (model.ImportJobList, error) {
	f, opts := filter.query()
	return s.store.ImportJob().List(ctx, f, opts)
}

// CancelImportJob is cooperative: a running worker finishes its batch and stops at the
// next progress write. Queued work is removed on a best effort basis.
func (s *ImportService) CancelImportJob(ctx context.Context, id uuid.UUID) (*model.ImportJob, error) {
	tracer := log.NewDebugLogger("import_service").
		WithContext(ctx).
		Operation("cancel_import_job").
		WithUUID("job_id", id).
		Build()

	job, err := s.store.ImportJob().Transition(ctx, id,
		[]model.JobStatus{model.JobStatusPending, model.JobStatusProcessing},
		model.JobStatusCancelled,
		map[string]any{"completed_at": s.clock.Now()},
	)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConditionFailed):
			return nil, NewErrJobState(id, job.Status, opCancel)
		case errors.Is(err, store.ErrRecordNotFound):
			return nil, NewErrImportJobNotFound(id)
		default:
			return nil, err
		}
	}
	metrics.IncreaseJobTransition(metrics.ImportKind, string(model.JobStatusCancelled))

	if job.QueueJobID != "" {
		if err := s.queue.Remove(ctx, job.QueueJobID); err != nil {
			tracer.Error(err).WithString("step", "remove_queued").Log()
		}
	}
	// a running worker still reads the upload and removes it once it stops
	if job.StartedAt == nil {
		if err := deleteBlob(ctx, s.blob, job.FileKey); err != nil {
			tracer.Error(err).WithString("step", "delete_upload").Log()
		}
	}

	tracer.Success().Log()
	return job, nil
}
