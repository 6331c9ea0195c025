package exporter

import (
	"context"

	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

type categoryExporter struct {
	store store.Store
}

func (e *categoryExporter) EntityType() model.EntityType {
	return model.EntityCategories
}

func (e *categoryExporter) Columns(_ context.Context, req Request) ([]string, error) {
	if len(req.Fields) > 0 {
		if err := checkFields(req.Fields, categoryBase, false); err != nil {
			return nil, err
		}
		return req.Fields, nil
	}
	return append([]string(nil), categoryBase...), nil
}

func categoryFilter(f model.ExportFilter) *store.CatalogQueryFilter {
	q := store.NewCatalogQueryFilter()
	if active, ok := activeFilter(f.Status); ok {
		q = q.ByActive(active)
	}
	if f.CreatedFrom != nil || f.CreatedTo != nil {
		q = q.ByCreatedRange(f.CreatedFrom, f.CreatedTo)
	}
	if f.Search != "" {
		q = q.BySearch(f.Search, "name", "slug", "description")
	}
	return q
}

func (e *categoryExporter) Count(ctx context.Context, filter model.ExportFilter) (int, error) {
	n, err := e.store.Category().Count(ctx, categoryFilter(filter))
	return int(n), err
}

func (e *categoryExporter) Page(ctx context.Context, filter model.ExportFilter, columns []string, offset, limit int) ([][]any, error) {
	var preload []string
	if has(columns, "parent") {
		preload = append(preload, "Parent")
	}
	categories, err := e.store.Category().List(ctx, categoryFilter(filter), pageOptions(offset, limit, preload...))
	if err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(categories))
	for i := range categories {
		c := &categories[i]
		row := make([]any, len(columns))
		for j, col := range columns {
			row[j] = categoryValue(c, col)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func categoryValue(c *model.Category, column string) any {
	switch column {
	case "name":
		return c.Name
	case "slug":
		return c.Slug
	case "description":
		return c.Description
	case "parent":
		if c.Parent == nil {
			return ""
		}
		return c.Parent.Slug
	case "position":
		return c.Position
	case "is_active":
		return c.IsActive
	case ColumnCreatedAt:
		return c.CreatedAt
	}
	return nil
}
