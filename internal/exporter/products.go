package exporter

import (
	"context"
	"sort"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

type productExporter struct {
	store store.Store
}

func (e *productExporter) EntityType() model.EntityType {
	return model.EntityProducts
}

func (e *productExporter) known() []string {
	return append(append([]string(nil), productBase...),
		ColumnCategories, ColumnImages, ColumnImageCount, ColumnPrimaryImage, ColumnVariantCount, ColumnVariantSKUs)
}

func (e *productExporter) Columns(ctx context.Context, req Request) ([]string, error) {
	if len(req.Fields) > 0 {
		if err := checkFields(req.Fields, e.known(), true); err != nil {
			return nil, err
		}
		return req.Fields, nil
	}

	columns := append([]string(nil), productBase...)
	if req.Options.IncludeCategories {
		columns = append(columns, ColumnCategories)
	}
	if req.Options.IncludeImages {
		columns = append(columns, ColumnImages, ColumnImageCount, ColumnPrimaryImage)
	}
	if req.Options.IncludeVariants {
		columns = append(columns, ColumnVariantCount, ColumnVariantSKUs)
	}
	if req.Options.IncludeAttributes {
		attrs, err := attributeColumns(ctx, e.store)
		if err != nil {
			return nil, err
		}
		columns = append(columns, attrs...)
	}
	return columns, nil
}

func productFilter(f model.ExportFilter) *store.CatalogQueryFilter {
	q := store.NewCatalogQueryFilter()
	if len(f.Status) > 0 {
		q = q.ByProductStatus(f.Status)
	}
	if len(f.Categories) > 0 {
		q = q.ByCategories(f.Categories)
	}
	if len(f.Brands) > 0 {
		q = q.ByBrands(f.Brands)
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
		q = q.BySearch(f.Search, "name", "sku", "description")
	}
	return q
}

func (e *productExporter) Count(ctx context.Context, filter model.ExportFilter) (int, error) {
	n, err := e.store.Product().Count(ctx, productFilter(filter))
	return int(n), err
}

func (e *productExporter) Page(ctx context.Context, filter model.ExportFilter, columns []string, offset, limit int) ([][]any, error) {
	var preload []string
	if has(columns, ColumnCategories) {
		preload = append(preload, "Categories")
	}
	if has(columns, ColumnImages, ColumnImageCount, ColumnPrimaryImage) {
		preload = append(preload, "Media")
	}
	if has(columns, ColumnVariantCount, ColumnVariantSKUs) {
		preload = append(preload, "Variants")
	}
	if hasDynamic(columns) {
		preload = append(preload, "Attributes.Attribute")
	}

	products, err := e.store.Product().List(ctx, productFilter(filter), pageOptions(offset, limit, preload...))
	if err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(products))
	for i := range products {
		p := &products[i]
		sort.Slice(p.Media, func(a, b int) bool { return p.Media[a].Position < p.Media[b].Position })
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = productValue(p, c)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func productValue(p *model.Product, column string) any {
	switch column {
	case "sku":
		return p.SKU
	case "name":
		return p.Name
	case "description":
		return p.Description
	case "price":
		return p.Price
	case "compare_at_price":
		return p.CompareAtPrice
	case "quantity":
		return p.Quantity
	case "weight":
		return p.Weight
	case "status":
		return p.Status
	case "type":
		return p.Type
	case "brand":
		return p.Brand
	case "barcode":
		return p.Barcode
	case "tags":
		return p.TagList()
	case ColumnCreatedAt:
		return p.CreatedAt
	case ColumnUpdatedAt:
		return p.UpdatedAt
	case ColumnCategories:
		names := make([]string, 0, len(p.Categories))
		for _, c := range p.Categories {
			names = append(names, c.Name)
		}
		sort.Strings(names)
		return names
	case ColumnImages:
		urls := make([]string, 0, len(p.Media))
		for _, m := range p.Media {
			urls = append(urls, m.URL)
		}
		return urls
	case ColumnImageCount:
		return len(p.Media)
	case ColumnPrimaryImage:
		return p.PrimaryImage()
	case ColumnVariantCount:
		return len(p.Variants)
	case ColumnVariantSKUs:
		skus := make([]string, 0, len(p.Variants))
		for _, v := range p.Variants {
			skus = append(skus, v.SKU)
		}
		sort.Strings(skus)
		return skus
	}

	if code, ok := catalog.AttributeCode(column); ok {
		for _, av := range p.Attributes {
			if av.Attribute != nil && av.Attribute.Code == code {
				return av.Value
			}
		}
	}
	return nil
}
