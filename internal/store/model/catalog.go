package model

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID             uuid.UUID               `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt      time.Time               `gorm:"not null;index:products_created_at_idx"`
	UpdatedAt      *time.Time
	SKU            string                  `gorm:"not null;uniqueIndex:products_sku_idx"`
	Name           string                  `gorm:"not null"`
	Description    string
	Price          float64                 `gorm:"not null;default:0"`
	CompareAtPrice *float64
	Quantity       int                     `gorm:"not null;default:0"`
	Weight         *float64
	Status         string                  `gorm:"not null;type:VARCHAR(32);default:draft"`
	Type           string                  `gorm:"not null;type:VARCHAR(32);default:simple"`
	Brand          string                  `gorm:"index:products_brand_idx"`
	Barcode        string
	Tags           *JSONField[[]string]    `gorm:"type:jsonb"`
	Categories     []Category              `gorm:"many2many:product_categories;"`
	Variants       []Variant               `gorm:"foreignKey:ProductID;references:ID;constraint:OnDelete:CASCADE;"`
	Media          []Media                 `gorm:"foreignKey:ProductID;references:ID;constraint:OnDelete:CASCADE;"`
	Attributes     []ProductAttributeValue `gorm:"foreignKey:ProductID;references:ID;constraint:OnDelete:CASCADE;"`
}

type ProductList []Product

type Variant struct {
	ID             uuid.UUID                     `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt      time.Time                     `gorm:"not null;index:variants_created_at_idx"`
	UpdatedAt      *time.Time
	ProductID      uuid.UUID                     `gorm:"not null;type:VARCHAR(255);index:variants_product_id_idx"`
	Product        *Product                      `gorm:"foreignKey:ProductID;references:ID"`
	SKU            string                        `gorm:"not null;uniqueIndex:variants_sku_idx"`
	Name           string
	Price          float64                       `gorm:"not null;default:0"`
	CompareAtPrice *float64
	Quantity       int                           `gorm:"not null;default:0"`
	Weight         *float64
	Barcode        string
	Options        *JSONField[map[string]string] `gorm:"type:jsonb"`
}

type VariantList []Variant

type Category struct {
	ID          uuid.UUID  `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt   time.Time  `gorm:"not null;index:categories_created_at_idx"`
	UpdatedAt   *time.Time
	Name        string     `gorm:"not null;index:categories_name_idx"`
	Slug        string     `gorm:"not null;uniqueIndex:categories_slug_idx"`
	Description string
	ParentID    *uuid.UUID `gorm:"type:VARCHAR(255);index:categories_parent_id_idx"`
	Parent      *Category  `gorm:"foreignKey:ParentID;references:ID"`
	Position    int        `gorm:"not null;default:0"`
	IsActive    bool       `gorm:"not null"`
}

type CategoryList []Category

type Attribute struct {
	ID           uuid.UUID            `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt    time.Time            `gorm:"not null;index:attributes_created_at_idx"`
	UpdatedAt    *time.Time
	Code         string               `gorm:"not null;uniqueIndex:attributes_code_idx"`
	Name         string               `gorm:"not null"`
	Type         string               `gorm:"not null;type:VARCHAR(32);default:text"`
	Options      *JSONField[[]string] `gorm:"type:jsonb"`
	IsRequired   bool                 `gorm:"not null;default:false"`
	IsFilterable bool                 `gorm:"not null;default:false"`
}

type AttributeList []Attribute

type ProductAttributeValue struct {
	ID          uint       `gorm:"primaryKey;autoIncrement"`
	ProductID   uuid.UUID  `gorm:"not null;type:VARCHAR(255);uniqueIndex:product_attribute_values_idx"`
	AttributeID uuid.UUID  `gorm:"not null;type:VARCHAR(255);uniqueIndex:product_attribute_values_idx"`
	Attribute   *Attribute `gorm:"foreignKey:AttributeID;references:ID;constraint:OnDelete:CASCADE;"`
	Value       string
}

type Media struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	ProductID uuid.UUID `gorm:"not null;type:VARCHAR(255);index:product_media_product_id_idx"`
	URL       string    `gorm:"not null"`
	Position  int       `gorm:"not null;default:0"`
}

func (Media) TableName() string {
	return "product_media"
}

// PrimaryImage is the media entry with the lowest position.
func (p *Product) PrimaryImage() string {
	if len(p.Media) == 0 {
		return ""
	}
	best := p.Media[0]
	for _, m := range p.Media[1:] {
		if m.Position < best.Position {
			best = m
		}
	}
	return best.URL
}

func (p *Product) TagList() []string {
	if p.Tags == nil {
		return nil
	}
	return p.Tags.Data
}
