package rowproc

import (
	"context"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/internal/tabular"
)

// ValidateRow is the single row form of Processor.Validate.
func ValidateRow(ctx context.Context, rec tabular.Record, mapping map[string]string, entityType model.EntityType, refs References) (Report, error) {
	p := New(entityType, mapping, Rules{}, refs)
	return p.Validate(ctx, p.Map(rec))
}

// TransformRow is the single row form of Processor.Transform.
func TransformRow(rec tabular.Record, mapping map[string]string, entityType model.EntityType) catalog.Draft {
	p := New(entityType, mapping, Rules{}, nil)
	return p.Transform(p.Map(rec))
}
