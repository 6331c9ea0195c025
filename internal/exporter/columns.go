package exporter

import (
	"context"
	"fmt"
	"strings"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

// Relation columns computed from joined records.
const (
	ColumnCategories   = "categories"
	ColumnImages       = "images"
	ColumnImageCount   = "image_count"
	ColumnPrimaryImage = "primary_image"
	ColumnVariantCount = "variant_count"
	ColumnVariantSKUs  = "variant_skus"
	ColumnCreatedAt    = "created_at"
	ColumnUpdatedAt    = "updated_at"
)

var (
	productBase   = []string{"sku", "name", "description", "price", "compare_at_price", "quantity", "weight", "status", "type", "brand", "barcode", "tags", ColumnCreatedAt, ColumnUpdatedAt}
	variantBase   = append(catalog.Headers(model.EntityVariants), ColumnCreatedAt, ColumnUpdatedAt)
	categoryBase  = append(catalog.Headers(model.EntityCategories), ColumnCreatedAt)
	attributeBase = append(catalog.Headers(model.EntityAttributes), ColumnCreatedAt)
)

// checkFields rejects names outside known, attribute targets are accepted when allowDynamic.
func checkFields(fields, known []string, allowDynamic bool) error {
	set := make(map[string]bool, len(known))
	for _, k := range known {
		set[k] = true
	}
	var unknown []string
	for _, f := range fields {
		if set[f] {
			continue
		}
		if _, ok := catalog.AttributeCode(f); ok && allowDynamic {
			continue
		}
		unknown = append(unknown, f)
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown export fields: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// attributeColumns lists one attributes.<code> column per attribute, by code.
func attributeColumns(ctx context.Context, s store.Store) ([]string, error) {
	attrs, err := s.Attribute().List(ctx, nil, store.NewQueryOptions().WithOrder("code ASC"))
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(attrs))
	for _, a := range attrs {
		cols = append(cols, catalog.AttributePrefix+a.Code)
	}
	return cols, nil
}

func has(columns []string, names ...string) bool {
	for _, c := range columns {
		for _, n := range names {
			if c == n {
				return true
			}
		}
	}
	return false
}

func hasDynamic(columns []string) bool {
	for _, c := range columns {
		if _, ok := catalog.AttributeCode(c); ok {
			return true
		}
	}
	return false
}

func pageOptions(offset, limit int, preload ...string) *store.QueryOptions {
	opts := store.NewQueryOptions().
		WithOrder("created_at ASC").
		WithOrder("id ASC").
		WithOffset(offset).
		WithLimit(limit)
	if len(preload) > 0 {
		opts = opts.WithPreload(preload...)
	}
	return opts
}

// activeFilter maps the status set of a category export onto is_active. A set naming
// both states, or neither, does not filter.
func activeFilter(statuses []string) (bool, bool) {
	active, inactive := false, false
	for _, s := range statuses {
		switch strings.ToLower(s) {
		case "active":
			active = true
		case "inactive", "archived":
			inactive = true
		}
	}
	if active == inactive {
		return false, false
	}
	return active, true
}
