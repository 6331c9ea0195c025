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

type Category interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Category, error)
	GetBySlug(ctx context.Context, slug string) (*model.Category, error)
	// FindByNameOrSlug resolves a soft reference, slug matches win over name matches.
	FindByNameOrSlug(ctx context.Context, ref string) (*model.Category, error)
	Create(ctx context.Context, category model.Category) (*model.Category, error)
	Update(ctx context.Context, category model.Category) (*model.Category, error)
	List(ctx context.Context, filter *CatalogQueryFilter, opts *QueryOptions) (model.CategoryList, error)
	Count(ctx context.Context, filter *CatalogQueryFilter) (int64, error)
}

type CategoryStore struct {
	db *gorm.DB
}

var _ Category = (*CategoryStore)(nil)

func NewCategoryStore(db *gorm.DB) Category {
	return &CategoryStore{db: db}
}

func (s *CategoryStore) Get(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var c model.Category
	if err := s.getDB(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &c, nil
}

func (s *CategoryStore) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	var c model.Category
	if err := s.getDB(ctx).First(&c, "slug = ?", slug).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &c, nil
}

func (s *CategoryStore) FindByNameOrSlug(ctx context.Context, ref string) (*model.Category, error) {
	c, err := s.GetBySlug(ctx, ref)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}
	var byName model.Category
	if err := s.getDB(ctx).Order("created_at ASC").First(&byName, "name = ?", ref).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &byName, nil
}

func (s *CategoryStore) Create(ctx context.Context, category model.Category) (*model.Category, error) {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	if err := s.getDB(ctx).Omit(clause.Associations).Create(&category).Error; err != nil {
		return nil, translateDuplicate(err)
	}
	return &category, nil
}

func (s *CategoryStore) Update(ctx context.Context, category model.Category) (*model.Category, error) {
	now := time.Now()
	category.UpdatedAt = &now
	result := s.getDB(ctx).Model(&model.Category{ID: category.ID}).
		Select("*").Omit("id", "created_at", clause.Associations).
		Updates(&category)
	if result.Error != nil {
		return nil, translateDuplicate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return s.Get(ctx, category.ID)
}

func (s *CategoryStore) List(ctx context.Context, filter *CatalogQueryFilter, opts *QueryOptions) (model.CategoryList, error) {
	var categories model.CategoryList
	tx := s.getDB(ctx).Model(&categories)
	if filter != nil {
		tx = applyQuery(tx, filter.QueryFn)
	}
	if opts != nil {
		tx = applyQuery(tx, opts.QueryFn)
	}
	if err := tx.Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *CategoryStore) Count(ctx context.Context, filter *CatalogQueryFilter) (int64, error) {
	var total int64
	tx := s.getDB(ctx).Model(&model.Category{})
	if filter != nil {
		tx = applyQuery(tx, filter.QueryFn)
	}
	if err := tx.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *CategoryStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
