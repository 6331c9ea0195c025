package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openpim/catalog-bulk/internal/store/model"
)

type ImportJob interface {
	Create(ctx context.Context, job model.ImportJob) (*model.ImportJob, error)
	Get(ctx context.Context, id uuid.UUID) (*model.ImportJob, error)
	List(ctx context.Context, filter *JobQueryFilter, opts *QueryOptions) (model.ImportJobList, error)
	// Transition moves the job to status `to` only when its current status is one of `from`.
	// On a status mismatch it returns the current record together with ErrConditionFailed.
	Transition(ctx context.Context, id uuid.UUID, from []model.JobStatus, to model.JobStatus, changes map[string]any) (*model.ImportJob, error)
	// ApplyProgress adds delta to the counters of a PROCESSING job in a single
	// read-modify-write keyed by id. The error list is capped at maxErrors.
	ApplyProgress(ctx context.Context, id uuid.UUID, delta model.ImportProgress, maxErrors int) (*model.ImportJob, error)
	SetQueueJobID(ctx context.Context, id uuid.UUID, queueJobID string) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type ImportJobStore struct {
	db *gorm.DB
}

var _ ImportJob = (*ImportJobStore)(nil)

func NewImportJobStore(db *gorm.DB) ImportJob {
	return &ImportJobStore{db: db}
}

func (s *ImportJobStore) Create(ctx context.Context, job model.ImportJob) (*model.ImportJob, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if err := s.getDB(ctx).Create(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &job, nil
}

func (s *ImportJobStore) Get(ctx context.Context, id uuid.UUID) (*model.ImportJob, error) {
	var job model.ImportJob
	if err := s.getDB(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (s *ImportJobStore) List(ctx context.Context, filter *JobQueryFilter, opts *QueryOptions) (model.ImportJobList, error) {
	var jobs model.ImportJobList
	tx := s.getDB(ctx).Model(&jobs).Order("created_at DESC")
	if filter != nil {
		tx = applyQuery(tx, filter.QueryFn)
	}
	if opts != nil {
		tx = applyQuery(tx, opts.QueryFn)
	}
	if err := tx.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *ImportJobStore) Transition(ctx context.Context, id uuid.UUID, from []model.JobStatus, to model.JobStatus, changes map[string]any) (*model.ImportJob, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now()}
	for k, v := range changes {
		updates[k] = v
	}

	result := s.getDB(ctx).Model(&model.ImportJob{}).Where("id = ? AND status IN ?", id, from).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}

	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return job, ErrConditionFailed
	}
	return job, nil
}

func (s *ImportJobStore) ApplyProgress(ctx context.Context, id uuid.UUID, delta model.ImportProgress, maxErrors int) (*model.ImportJob, error) {
	var job model.ImportJob
	err := s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&job, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			return err
		}
		if job.Status != model.JobStatusProcessing {
			return ErrConditionFailed
		}

		job.ProcessedRows = min(job.ProcessedRows+delta.Processed, job.TotalRows)
		job.SuccessCount += delta.Success
		job.ErrorCount += delta.Failed
		job.SkipCount += delta.Skipped
		if over := job.SuccessCount + job.ErrorCount - job.ProcessedRows; over > 0 {
			job.SuccessCount = max(job.SuccessCount-over, 0)
		}

		rowErrors := job.ErrorsData()
		for _, e := range delta.Errors {
			if len(rowErrors) >= maxErrors {
				break
			}
			rowErrors = append(rowErrors, e)
		}

		summary := job.SummaryData()
		summary.Created += delta.Created
		summary.Updated += delta.Updated
		summary.Skipped = job.SkipCount
		summary.Failed = job.ErrorCount

		return tx.Model(&model.ImportJob{}).Where("id = ?", id).Updates(map[string]any{
			"processed_rows": job.ProcessedRows,
			"success_count":  job.SuccessCount,
			"error_count":    job.ErrorCount,
			"skip_count":     job.SkipCount,
			"errors":         model.MakeJSONField(rowErrors),
			"summary":        model.MakeJSONField(summary),
			"updated_at":     time.Now(),
		}).Error
	})
	if err != nil {
		if errors.Is(err, ErrConditionFailed) {
			return &job, err
		}
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *ImportJobStore) SetQueueJobID(ctx context.Context, id uuid.UUID, queueJobID string) error {
	return s.getDB(ctx).Model(&model.ImportJob{}).Where("id = ?", id).Update("queue_job_id", queueJobID).Error
}

func (s *ImportJobStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return countByStatus(s.getDB(ctx).Model(&model.ImportJob{}))
}

func (s *ImportJobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

func countByStatus(tx *gorm.DB) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	if err := tx.Select("status, COUNT(*) AS total").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}
