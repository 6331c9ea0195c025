package exporter

import (
	"context"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

type variantExporter struct {
	store store.Store
}

func (e *variantExporter) EntityType() model.EntityType {
	return model.EntityVariants
}

func (e *variantExporter) Columns(_ context.Context, req Request) ([]string, error) {
	if len(req.Fields) > 0 {
		if err := checkFields(req.Fields, variantBase, false); err != nil {
			return nil, err
		}
		return req.Fields, nil
	}
	return append([]string(nil), variantBase...), nil
}

// variantFilter applies product level predicates through the parent product.
func variantFilter(f model.ExportFilter) *store.CatalogQueryFilter {
	q := store.NewCatalogQueryFilter()
	if len(f.Status) > 0 {
		q = q.ByParentStatus(f.Status)
	}
	if len(f.Categories) > 0 {
		q = q.ByProductCategories(f.Categories)
	}
	if len(f.Brands) > 0 {
		q = q.ByParentBrands(f.Brands)
	}
	if f.PriceMin != nil || f.PriceMax != nil {
		q = q.ByPriceRange(f.PriceMin, f.PriceMax)
	}
	if f.StockMin != nil || f.StockMax != nil {
		q = q.ByStockRange(f.StockMin, f.StockMax)
	}
	if f.CreatedFrom != nil || f.CreatedTo != nil {
		q = q.ByCreatedRange(f.CreatedFrom, f.CreatedTo)
	}
	if f.Search != "" {
		q = q.BySearch(f.Search, "name", "sku")
	}
	return q
}

func (e *variantExporter) Count(ctx context.Context, filter model.ExportFilter) (int, error) {
	n, err := e.store.Variant().Count(ctx, variantFilter(filter))
	return int(n), err
}

func (e *variantExporter) Page(ctx context.Context, filter model.ExportFilter, columns []string, offset, limit int) ([][]any, error) {
	var preload []string
	if has(columns, "parent_sku") {
		preload = append(preload, "Product")
	}
	variants, err := e.store.Variant().List(ctx, variantFilter(filter), pageOptions(offset, limit, preload...))
	if err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(variants))
	for i := range variants {
		v := &variants[i]
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = variantValue(v, c)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func variantValue(v *model.Variant, column string) any {
	switch column {
	case "parent_sku":
		if v.Product == nil {
			return ""
		}
		return v.Product.SKU
	case "sku":
		return v.SKU
	case "name":
		return v.Name
	case "price":
		return v.Price
	case "compare_at_price":
		return v.CompareAtPrice
	case "quantity":
		return v.Quantity
	case "weight":
		return v.Weight
	case "barcode":
		return v.Barcode
	case "options":
		if v.Options == nil {
			return ""
		}
		return catalog.FormatOptions(v.Options.Data)
	case ColumnCreatedAt:
		return v.CreatedAt
	case ColumnUpdatedAt:
		return v.UpdatedAt
	}
	return nil
}
