package rowproc

import (
	"strings"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

// Transform builds the typed draft for the row. It never fails: numbers that do not
// parse or overflow become 0 and unknown booleans become false.
func (p *Processor) Transform(values Values) catalog.Draft {
	present := catalog.Presence{}
	for target, v := range values {
		if v != "" {
			present[target] = true
		}
	}

	switch p.entityType {
	case model.EntityProducts:
		d := &catalog.ProductDraft{
			Presence:       present,
			SKU:            values["sku"],
			Name:           values["name"],
			Description:    values["description"],
			Price:          number(values["price"]),
			CompareAtPrice: optionalNumber(values["compare_at_price"]),
			Quantity:       integer(values["quantity"]),
			Weight:         optionalNumber(values["weight"]),
			Status:         orDefault(strings.ToLower(values["status"]), "draft"),
			Type:           orDefault(strings.ToLower(values["type"]), "simple"),
			Brand:          values["brand"],
			Barcode:        values["barcode"],
			Categories:     catalog.SplitList(values["categories"]),
			Tags:           catalog.SplitList(values["tags"]),
			Images:         catalog.SplitList(values["images"]),
			Attributes:     map[string]string{},
		}
		for target, v := range values {
			if code, ok := catalog.AttributeCode(target); ok && v != "" {
				d.Attributes[code] = v
			}
		}
		return d

	case model.EntityVariants:
		return &catalog.VariantDraft{
			Presence:       present,
			ParentSKU:      values["parent_sku"],
			SKU:            values["sku"],
			Name:           values["name"],
			Price:          number(values["price"]),
			CompareAtPrice: optionalNumber(values["compare_at_price"]),
			Quantity:       integer(values["quantity"]),
			Weight:         optionalNumber(values["weight"]),
			Barcode:        values["barcode"],
			Options:        catalog.ParseOptions(values["options"]),
		}

	case model.EntityCategories:
		slug := values["slug"]
		if slug == "" {
			slug = catalog.Slugify(values["name"])
		}
		active := true
		if present.Has("is_active") {
			active, _ = catalog.ParseBool(values["is_active"])
		}
		return &catalog.CategoryDraft{
			Presence:    present,
			Name:        values["name"],
			Slug:        slug,
			Description: values["description"],
			Parent:      values["parent"],
			Position:    integer(values["position"]),
			IsActive:    active,
		}

	case model.EntityAttributes:
		required, _ := catalog.ParseBool(values["is_required"])
		filterable, _ := catalog.ParseBool(values["is_filterable"])
		return &catalog.AttributeDraft{
			Presence:     present,
			Code:         values["code"],
			Name:         values["name"],
			Type:         orDefault(strings.ToLower(values["type"]), "text"),
			Options:      catalog.SplitList(values["options"]),
			IsRequired:   required,
			IsFilterable: filterable,
		}
	}
	return nil
}

func number(s string) float64 {
	f, ok := catalog.ParseNumber(s)
	if !ok {
		return 0
	}
	return f
}

func integer(s string) int {
	n, ok := catalog.ParseInteger(s)
	if !ok {
		return 0
	}
	return n
}

func optionalNumber(s string) *float64 {
	if s == "" {
		return nil
	}
	f := number(s)
	return &f
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
