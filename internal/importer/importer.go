package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

// RowImporter commits one draft of its entity type. Row level failures are returned
// in the Result, the error is reserved for failures that must abort the job.
type RowImporter interface {
	EntityType() model.EntityType
	Import(ctx context.Context, draft catalog.Draft, updateExisting bool) (Result, error)
}

func New(entityType model.EntityType, s store.Store) (RowImporter, error) {
	switch entityType {
	case model.EntityProducts:
		return &productImporter{store: s}, nil
	case model.EntityVariants:
		return &variantImporter{store: s}, nil
	case model.EntityCategories:
		return &categoryImporter{store: s}, nil
	case model.EntityAttributes:
		return &attributeImporter{store: s}, nil
	default:
		return nil, fmt.Errorf("no importer for entity type %q", entityType)
	}
}

func conflict(entity, key, value string) error {
	return fmt.Errorf("%s with %s %q already exists: %w", entity, key, value, ErrConflict)
}

func wrongDraft(want string, got catalog.Draft) error {
	return fmt.Errorf("expected a %s draft, got %T", want, got)
}

// errRowFailed rolls back a row whose Result says it failed.
var errRowFailed = errors.New("row failed")

// inTx runs fn inside a transaction bound to the context, so every store call of
// the row commits or rolls back together.
func inTx(ctx context.Context, s store.Store, fn func(ctx context.Context) (Result, error)) (Result, error) {
	var result Result
	err := store.Atomic(ctx, s, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		if err == nil && result.Outcome == OutcomeFailed {
			return errRowFailed
		}
		return err
	})
	if errors.Is(err, errRowFailed) {
		return result, nil
	}
	return result, err
}
