package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openpim/catalog-bulk/internal/store/model"
)

type Attribute interface {
	GetByCode(ctx context.Context, code string) (*model.Attribute, error)
	Create(ctx context.Context, attribute model.Attribute) (*model.Attribute, error)
	Update(ctx context.Context, attribute model.Attribute) (*model.Attribute, error)
	List(ctx context.Context, filter *CatalogQueryFilter, opts *QueryOptions) (model.AttributeList, error)
	Count(ctx context.Context, filter *CatalogQueryFilter) (int64, error)
}

type AttributeStore struct {
	db *gorm.DB
}

var _ Attribute = (*AttributeStore)(nil)

func NewAttributeStore(db *gorm.DB) Attribute {
	return &AttributeStore{db: db}
}

func (s *AttributeStore) GetByCode(ctx context.Context, code string) (*model.Attribute, error) {
	var a model.Attribute
	if err := s.getDB(ctx).First(&a, "code = ?", code).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &a, nil
}

func (s *AttributeStore) Create(ctx context.Context, attribute model.Attribute) (*model.Attribute, error) {
	if attribute.ID == uuid.Nil {
		attribute.ID = uuid.New()
	}
	if err := s.getDB(ctx).Create(&attribute).Error; err != nil {
		return nil, translateDuplicate(err)
	}
	return &attribute, nil
}

func (s *AttributeStore) Update(ctx context.Context, attribute model.Attribute) (*model.Attribute, error) {
	now := time.Now()
	attribute.UpdatedAt = &now
	result := s.getDB(ctx).Model(&model.Attribute{ID: attribute.ID}).
		Select("*").Omit("id", "created_at").
		Updates(&attribute)
	if result.Error != nil {
		return nil, translateDuplicate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return s.GetByCode(ctx, attribute.Code)
}

func (s *AttributeStore) List(ctx context.Context, filter *CatalogQueryFilter, opts *QueryOptions) (model.AttributeList, error) {
	var attributes model.AttributeList
	tx := s.getDB(ctx).Model(&attributes)
	if filter != nil {
		tx = applyQuery(tx, filter.QueryFn)
	}
	if opts != nil {
		tx = applyQuery(tx, opts.QueryFn)
	}
	if err := tx.Find(&attributes).Error; err != nil {
		return nil, err
	}
	return attributes, nil
}

func (s *AttributeStore) Count(ctx context.Context, filter *CatalogQueryFilter) (int64, error) {
	var total int64
	tx := s.getDB(ctx).Model(&model.Attribute{})
	if filter != nil {
		tx = applyQuery(tx, filter.QueryFn)
	}
	if err := tx.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *AttributeStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
