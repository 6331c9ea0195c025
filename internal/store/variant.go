package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openpim/catalog-bulk/internal/store/model"
)

type Variant interface {
	GetBySKU(ctx context.Context, sku string) (*model.Variant, error)
	Create(ctx context.Context, variant model.Variant) (*model.Variant, error)
	Update(ctx context.Context, variant model.Variant) (*model.Variant, error)
	List(ctx context.Context, filter *CatalogQueryFilter, opts *QueryOptions) (model.VariantList, error)
	Count(ctx context.Context, filter *CatalogQueryFilter) (int64, error)
}

type VariantStore struct {
	db *gorm.DB
}

var _ Variant = (*VariantStore)(nil)

func NewVariantStore(db *gorm.DB) Variant {
	return &VariantStore{db: db}
}

func (s *VariantStore) GetBySKU(ctx context.Context, sku string) (*model.Variant, error) {
	var v model.Variant
	if err := s.getDB(ctx).First(&v, "sku = ?", sku).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &v, nil
}

func (s *VariantStore) Create(ctx context.Context, variant model.Variant) (*model.Variant, error) {
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	if err := s.getDB(ctx).Omit(clause.Associations).Create(&variant).Error; err != nil {
		return nil, translateDuplicate(err)
	}
	return &variant, nil
}

func (s *VariantStore) Update(ctx context.Context, variant model.Variant) (*model.Variant, error) {
	now := time.Now()
	variant.UpdatedAt = &now
	result := s.getDB(ctx).Model(&model.Variant{ID: variant.ID}).
		Select("*").Omit("id", "created_at", clause.Associations).
		Updates(&variant)
	if result.Error != nil {
		return nil, translateDuplicate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return s.GetBySKU(ctx, variant.SKU)
}

func (s *VariantStore) List(ctx context.Context, filter *CatalogQueryFilter, opts *QueryOptions) (model.VariantList, error) {
	var variants model.VariantList
	tx := s.getDB(ctx).Model(&variants)
	if filter != nil {
		tx = applyQuery(tx, filter.QueryFn)
	}
	if opts != nil {
		tx = applyQuery(tx, opts.QueryFn)
	}
	if err := tx.Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

func (s *VariantStore) Count(ctx context.Context, filter *CatalogQueryFilter) (int64, error) {
	var total int64
	tx := s.getDB(ctx).Model(&model.Variant{})
	if filter != nil {
		tx = applyQuery(tx, filter.QueryFn)
	}
	if err := tx.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *VariantStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
