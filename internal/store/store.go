package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/openpim/catalog-bulk/internal/store/model"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	ImportJob() ImportJob
	ExportJob() ExportJob
	MappingTemplate() MappingTemplate
	Product() Product
	Variant() Variant
	Category() Category
	Attribute() Attribute
	// InitialMigration creates the schema from the gorm models. Postgres deployments
	// run the goose migrations instead.
	InitialMigration(ctx context.Context) error
	Close() error
}

type DataStore struct {
	db              *gorm.DB
	importJob       ImportJob
	exportJob       ExportJob
	mappingTemplate MappingTemplate
	product         Product
	variant         Variant
	category        Category
	attribute       Attribute
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:              db,
		importJob:       NewImportJobStore(db),
		exportJob:       NewExportJobStore(db),
		mappingTemplate: NewMappingTemplateStore(db),
		product:         NewProductStore(db),
		variant:         NewVariantStore(db),
		category:        NewCategoryStore(db),
		attribute:       NewAttributeStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) ImportJob() ImportJob {
	return s.importJob
}

func (s *DataStore) ExportJob() ExportJob {
	return s.exportJob
}

func (s *DataStore) MappingTemplate() MappingTemplate {
	return s.mappingTemplate
}

func (s *DataStore) Product() Product {
	return s.product
}

func (s *DataStore) Variant() Variant {
	return s.variant
}

func (s *DataStore) Category() Category {
	return s.category
}

func (s *DataStore) Attribute() Attribute {
	return s.attribute
}

func (s *DataStore) InitialMigration(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&model.ImportJob{},
		&model.ExportJob{},
		&model.MappingTemplate{},
		&model.Category{},
		&model.Attribute{},
		&model.Product{},
		&model.Variant{},
		&model.ProductAttributeValue{},
		&model.Media{},
	)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
