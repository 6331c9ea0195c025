package catalog

import "github.com/openpim/catalog-bulk/internal/store/model"

// Draft is the typed result of transforming one row.
type Draft interface {
	EntityType() model.EntityType
	// NaturalKey is the business identifier used for update-or-create.
	NaturalKey() string
	// Has reports whether the row carried a value for the target field.
	Has(field string) bool
}

// Presence records which target fields had a value in the source row. Updates only
// touch present fields.
type Presence map[string]bool

func (p Presence) Has(field string) bool {
	return p[field]
}

type ProductDraft struct {
	Presence
	SKU            string
	Name           string
	Description    string
	Price          float64
	CompareAtPrice *float64
	Quantity       int
	Weight         *float64
	Status         string
	Type           string
	Brand          string
	Barcode        string
	Categories     []string
	Tags           []string
	Images         []string
	// Attributes is keyed by attribute code.
	Attributes map[string]string
}

func (d *ProductDraft) EntityType() model.EntityType { return model.EntityProducts }
func (d *ProductDraft) NaturalKey() string           { return d.SKU }

type VariantDraft struct {
	Presence
	ParentSKU      string
	SKU            string
	Name           string
	Price          float64
	CompareAtPrice *float64
	Quantity       int
	Weight         *float64
	Barcode        string
	Options        map[string]string
}

func (d *VariantDraft) EntityType() model.EntityType { return model.EntityVariants }
func (d *VariantDraft) NaturalKey() string           { return d.SKU }

type CategoryDraft struct {
	Presence
	Name        string
	Slug        string
	Description string
	// Parent is a slug or a name.
	Parent   string
	Position int
	IsActive bool
}

func (d *CategoryDraft) EntityType() model.EntityType { return model.EntityCategories }
func (d *CategoryDraft) NaturalKey() string           { return d.Slug }

type AttributeDraft struct {
	Presence
	Code         string
	Name         string
	Type         string
	Options      []string
	IsRequired   bool
	IsFilterable bool
}

func (d *AttributeDraft) EntityType() model.EntityType { return model.EntityAttributes }
func (d *AttributeDraft) NaturalKey() string           { return d.Code }
