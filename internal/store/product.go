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

type Product interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetBySKU(ctx context.Context, sku string) (*model.Product, error)
	Create(ctx context.Context, product model.Product) (*model.Product, error)
	Update(ctx context.Context, product model.Product) (*model.Product, error)
	List(ctx context.Context, filter *CatalogQueryFilter, opts *QueryOptions) (model.ProductList, error)
	Count(ctx context.Context, filter *CatalogQueryFilter) (int64, error)
	// SetCategories replaces the category links of the product.
	SetCategories(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID) error
	// SetAttributeValues upserts one value per attribute id.
	SetAttributeValues(ctx context.Context, productID uuid.UUID, values map[uuid.UUID]string) error
	// SetMedia replaces the product images, positions follow the slice order.
	SetMedia(ctx context.Context, productID uuid.UUID, urls []string) error
}

type ProductStore struct {
	db *gorm.DB
}

var _ Product = (*ProductStore)(nil)

func NewProductStore(db *gorm.DB) Product {
	return &ProductStore{db: db}
}

func (s *ProductStore) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := s.getDB(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &p, nil
}

func (s *ProductStore) GetBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var p model.Product
	if err := s.getDB(ctx).First(&p, "sku = ?", sku).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &p, nil
}

func (s *ProductStore) Create(ctx context.Context, product model.Product) (*model.Product, error) {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if err := s.getDB(ctx).Omit(clause.Associations).Create(&product).Error; err != nil {
		return nil, translateDuplicate(err)
	}
	return &product, nil
}

func (s *ProductStore) Update(ctx context.Context, product model.Product) (*model.Product, error) {
	now := time.Now()
	product.UpdatedAt = &now
	result := s.getDB(ctx).Model(&model.Product{ID: product.ID}).
		Select("*").Omit("id", "created_at", clause.Associations).
		Updates(&product)
	if result.Error != nil {
		return nil, translateDuplicate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return s.Get(ctx, product.ID)
}

func (s *ProductStore) List(ctx context.Context, filter *CatalogQueryFilter, opts *QueryOptions) (model.ProductList, error) {
	var products model.ProductList
	tx := s.getDB(ctx).Model(&products)
	if filter != nil {
		tx = applyQuery(tx, filter.QueryFn)
	}
	if opts != nil {
		tx = applyQuery(tx, opts.QueryFn)
	}
	if err := tx.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *ProductStore) Count(ctx context.Context, filter *CatalogQueryFilter) (int64, error) {
	var total int64
	tx := s.getDB(ctx).Model(&model.Product{})
	if filter != nil {
		tx = applyQuery(tx, filter.QueryFn)
	}
	if err := tx.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *ProductStore) SetCategories(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID) error {
	return s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM product_categories WHERE product_id = ?", productID).Error; err != nil {
			return err
		}
		if len(categoryIDs) == 0 {
			return nil
		}
		links := make([]map[string]any, 0, len(categoryIDs))
		seen := make(map[uuid.UUID]struct{}, len(categoryIDs))
		for _, id := range categoryIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			links = append(links, map[string]any{"product_id": productID, "category_id": id})
		}
		return tx.Table("product_categories").Create(&links).Error
	})
}

func (s *ProductStore) SetAttributeValues(ctx context.Context, productID uuid.UUID, values map[uuid.UUID]string) error {
	if len(values) == 0 {
		return nil
	}
	rows := make([]model.ProductAttributeValue, 0, len(values))
	for attributeID, value := range values {
		rows = append(rows, model.ProductAttributeValue{ProductID: productID, AttributeID: attributeID, Value: value})
	}
	return s.getDB(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "attribute_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rows).Error
}

func (s *ProductStore) SetMedia(ctx context.Context, productID uuid.UUID, urls []string) error {
	return s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&model.Media{}).Error; err != nil {
			return err
		}
		if len(urls) == 0 {
			return nil
		}
		media := make([]model.Media, 0, len(urls))
		for i, u := range urls {
			media = append(media, model.Media{ProductID: productID, URL: u, Position: i})
		}
		return tx.Create(&media).Error
	})
}

func (s *ProductStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}

func translateDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}
