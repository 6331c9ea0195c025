package exporter

import (
	"context"
	"errors"
	"fmt"

	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/internal/tabular"
)

// ErrStopped is returned when a progress write found the job outside PROCESSING.
var ErrStopped = errors.New("export job is no longer processing")

// Request is what one export job asks for.
type Request struct {
	Filter  model.ExportFilter
	Fields  []string
	Options model.ExportOptions
}

// RowExporter reads one entity type page by page and flattens it into output rows.
type RowExporter interface {
	EntityType() model.EntityType
	// Columns resolves the output columns. Explicit fields win over the relation flags.
	Columns(ctx context.Context, req Request) ([]string, error)
	Count(ctx context.Context, filter model.ExportFilter) (int, error)
	// Page returns up to limit rows aligned with columns, in a stable order.
	Page(ctx context.Context, filter model.ExportFilter, columns []string, offset, limit int) ([][]any, error)
}

func New(entityType model.EntityType, s store.Store) (RowExporter, error) {
	switch entityType {
	case model.EntityProducts:
		return &productExporter{store: s}, nil
	case model.EntityVariants:
		return &variantExporter{store: s}, nil
	case model.EntityCategories:
		return &categoryExporter{store: s}, nil
	case model.EntityAttributes:
		return &attributeExporter{store: s}, nil
	default:
		return nil, fmt.Errorf("no exporter for entity type %q", entityType)
	}
}

// ProgressFunc persists processed/total. store.ErrConditionFailed stops the build.
type ProgressFunc func(ctx context.Context, processed, total int) error

type Builder struct {
	exporter RowExporter
	pageSize int
}

func NewBuilder(exporter RowExporter, pageSize int) *Builder {
	if pageSize <= 0 {
		pageSize = 200
	}
	return &Builder{exporter: exporter, pageSize: pageSize}
}

// Build streams the matching records into w one page at a time and returns the number
// of records written. w is not closed.
func (b *Builder) Build(ctx context.Context, w tabular.Writer, req Request, progress ProgressFunc) (int, error) {
	columns, err := b.exporter.Columns(ctx, req)
	if err != nil {
		return 0, err
	}
	total, err := b.exporter.Count(ctx, req.Filter)
	if err != nil {
		return 0, err
	}
	if err := w.WriteHeader(columns); err != nil {
		return 0, err
	}
	if err := report(ctx, progress, 0, total); err != nil {
		return 0, err
	}

	processed := 0
	for processed < total {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		rows, err := b.exporter.Page(ctx, req.Filter, columns, processed, b.pageSize)
		if err != nil {
			return processed, err
		}
		if len(rows) == 0 {
			// records deleted while exporting
			break
		}
		for _, row := range rows {
			if err := w.WriteRow(row); err != nil {
				return processed, err
			}
		}
		processed += len(rows)
		if err := report(ctx, progress, min(processed, total), total); err != nil {
			return processed, err
		}
	}
	return processed, nil
}

func report(ctx context.Context, progress ProgressFunc, processed, total int) error {
	if progress == nil {
		return nil
	}
	err := progress(ctx, processed, total)
	if errors.Is(err, store.ErrConditionFailed) {
		return ErrStopped
	}
	return err
}
