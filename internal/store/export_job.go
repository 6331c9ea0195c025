package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openpim/catalog-bulk/internal/store/model"
)

type ExportJob interface {
	Create(ctx context.Context, job model.ExportJob) (*model.ExportJob, error)
	Get(ctx context.Context, id uuid.UUID) (*model.ExportJob, error)
	List(ctx context.Context, filter *JobQueryFilter, opts *QueryOptions) (model.ExportJobList, error)
	Transition(ctx context.Context, id uuid.UUID, from []model.JobStatus, to model.JobStatus, changes map[string]any) (*model.ExportJob, error)
	// UpdateProgress only touches PROCESSING jobs, ErrConditionFailed otherwise.
	UpdateProgress(ctx context.Context, id uuid.UUID, processed, total int) error
	SetQueueJobID(ctx context.Context, id uuid.UUID, queueJobID string) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type ExportJobStore struct {
	db *gorm.DB
}

var _ ExportJob = (*ExportJobStore)(nil)

func NewExportJobStore(db *gorm.DB) ExportJob {
	return &ExportJobStore{db: db}
}

func (s *ExportJobStore) Create(ctx context.Context, job model.ExportJob) (*model.ExportJob, error) {
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

func (s *ExportJobStore) Get(ctx context.Context, id uuid.UUID) (*model.ExportJob, error) {
	var job model.ExportJob
	if err := s.getDB(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (s *ExportJobStore) List(ctx context.Context, filter *JobQueryFilter, opts *QueryOptions) (model.ExportJobList, error) {
	var jobs model.ExportJobList
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

func (s *ExportJobStore) Transition(ctx context.Context, id uuid.UUID, from []model.JobStatus, to model.JobStatus, changes map[string]any) (*model.ExportJob, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now()}
	for k, v := range changes {
		updates[k] = v
	}

	result := s.getDB(ctx).Model(&model.ExportJob{}).Where("id = ? AND status IN ?", id, from).Updates(updates)
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

func (s *ExportJobStore) UpdateProgress(ctx context.Context, id uuid.UUID, processed, total int) error {
	result := s.getDB(ctx).Model(&model.ExportJob{}).
		Where("id = ? AND status = ?", id, model.JobStatusProcessing).
		Updates(map[string]any{
			"processed_records": min(processed, total),
			"total_records":     total,
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (s *ExportJobStore) SetQueueJobID(ctx context.Context, id uuid.UUID, queueJobID string) error {
	return s.getDB(ctx).Model(&model.ExportJob{}).Where("id = ?", id).Update("queue_job_id", queueJobID).Error
}

func (s *ExportJobStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return countByStatus(s.getDB(ctx).Model(&model.ExportJob{}))
}

func (s *ExportJobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
