package exporter

import (
	"context"

	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

type attributeExporter struct {
	store store.Store
}

func (e *attributeExporter) EntityType() model.EntityType {
	return model.EntityAttributes
}

func (e *attributeExporter) Columns(_ context.Context, req Request) ([]string, error) {
	if len(req.Fields) > 0 {
		if err := checkFields(req.Fields, attributeBase, false); err != nil {
			return nil, err
		}
		return req.Fields, nil
	}
	return append([]string(nil), attributeBase...), nil
}

func attributeFilter(f model.ExportFilter) *store.CatalogQueryFilter {
	q := store.NewCatalogQueryFilter()
	if f.CreatedFrom != nil || f.CreatedTo != nil {
		q = q.ByCreatedRange(f.CreatedFrom, f.CreatedTo)
	}
	if f.Search != "" {
		q = q.BySearch(f.Search, "code", "name")
	}
	return q
}

func (e *attributeExporter) Count(ctx context.Context, filter model.ExportFilter) (int, error) {
	n, err := e.store.Attribute().Count(ctx, attributeFilter(filter))
	return int(n), err
}

func (e *attributeExporter) Page(ctx context.Context, filter model.ExportFilter, columns []string, offset, limit int) ([][]any, error) {
	attributes, err := e.store.Attribute().List(ctx, attributeFilter(filter), pageOptions(offset, limit))
	if err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(attributes))
	for i := range attributes {
		a := &attributes[i]
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = attributeValue(a, c)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func attributeValue(a *model.Attribute, column string) any {
	switch column {
	case "code":
		return a.Code
	case "name":
		return a.Name
	case "type":
		return a.Type
	case "options":
		if a.Options == nil {
			return []string(nil)
		}
		return a.Options.Data
	case "is_required":
		return a.IsRequired
	case "is_filterable":
		return a.IsFilterable
	case ColumnCreatedAt:
		return a.CreatedAt
	}
	return nil
}
