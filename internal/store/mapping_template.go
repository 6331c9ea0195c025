package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openpim/catalog-bulk/internal/store/model"
)

type MappingTemplate interface {
	Create(ctx context.Context, tpl model.MappingTemplate) (*model.MappingTemplate, error)
	Get(ctx context.Context, id uuid.UUID) (*model.MappingTemplate, error)
	List(ctx context.Context, filter *MappingTemplateQueryFilter) (model.MappingTemplateList, error)
	Update(ctx context.Context, tpl model.MappingTemplate) (*model.MappingTemplate, error)
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementUsage(ctx context.Context, id uuid.UUID) error
	// GetDefault prefers the owner's default over the shared one.
	GetDefault(ctx context.Context, entityType model.EntityType, owner string) (*model.MappingTemplate, error)
}

type MappingTemplateStore struct {
	db *gorm.DB
}

var _ MappingTemplate = (*MappingTemplateStore)(nil)

func NewMappingTemplateStore(db *gorm.DB) MappingTemplate {
	return &MappingTemplateStore{db: db}
}

func (s *MappingTemplateStore) Create(ctx context.Context, tpl model.MappingTemplate) (*model.MappingTemplate, error) {
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	err := s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		if tpl.IsDefault {
			if err := unsetDefaults(tx, tpl); err != nil {
				return err
			}
		}
		return tx.Create(&tpl).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return s.Get(ctx, tpl.ID)
}

func (s *MappingTemplateStore) Get(ctx context.Context, id uuid.UUID) (*model.MappingTemplate, error) {
	var tpl model.MappingTemplate
	if err := s.getDB(ctx).First(&tpl, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

func (s *MappingTemplateStore) List(ctx context.Context, filter *MappingTemplateQueryFilter) (model.MappingTemplateList, error) {
	var tpls model.MappingTemplateList
	tx := s.getDB(ctx).Model(&tpls).Order("usage_count DESC").Order("created_at DESC")
	if filter != nil {
		tx = applyQuery(tx, filter.QueryFn)
	}
	if err := tx.Find(&tpls).Error; err != nil {
		return nil, err
	}
	return tpls, nil
}

func (s *MappingTemplateStore) Update(ctx context.Context, tpl model.MappingTemplate) (*model.MappingTemplate, error) {
	now := time.Now()
	tpl.UpdatedAt = &now
	err := s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		if tpl.IsDefault {
			if err := unsetDefaults(tx, tpl); err != nil {
				return err
			}
		}
		result := tx.Model(&model.MappingTemplate{ID: tpl.ID}).
			Select("name", "description", "mapping", "transformations", "default_values", "validation_rules", "is_default", "updated_at").
			Updates(&tpl)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, tpl.ID)
}

func (s *MappingTemplateStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).Delete(&model.MappingTemplate{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *MappingTemplateStore) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	return s.getDB(ctx).Model(&model.MappingTemplate{}).Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1)).Error
}

func (s *MappingTemplateStore) GetDefault(ctx context.Context, entityType model.EntityType, owner string) (*model.MappingTemplate, error) {
	tpls, err := s.List(ctx, NewMappingTemplateQueryFilter().ByEntityType(entityType).VisibleTo(owner).ByDefault())
	if err != nil {
		return nil, err
	}
	var shared *model.MappingTemplate
	for i := range tpls {
		if tpls[i].Owner != nil && *tpls[i].Owner == owner {
			return &tpls[i], nil
		}
		if tpls[i].Owner == nil && shared == nil {
			shared = &tpls[i]
		}
	}
	if shared == nil {
		return nil, ErrRecordNotFound
	}
	return shared, nil
}

// unsetDefaults keeps at most one default per (entity type, owner).
func unsetDefaults(tx *gorm.DB, tpl model.MappingTemplate) error {
	q := tx.Model(&model.MappingTemplate{}).Where("entity_type = ? AND id <> ?", tpl.EntityType, tpl.ID)
	if tpl.Owner == nil {
		q = q.Where("owner IS NULL")
	} else {
		q = q.Where("owner = ?", *tpl.Owner)
	}
	return q.Update("is_default", false).Error
}

func (s *MappingTemplateStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
