package importer

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

type attributeImporter struct {
	store store.Store
}

func (i *attributeImporter) EntityType() model.EntityType {
	return model.EntityAttributes
}

func (i *attributeImporter) Import(ctx context.Context, draft catalog.Draft, updateExisting bool) (Result, error) {
	d, ok := draft.(*catalog.AttributeDraft)
	if !ok {
		return Result{}, wrongDraft("attribute", draft)
	}

	return inTx(ctx, i.store, func(ctx context.Context) (Result, error) {
		existing, err := i.store.Attribute().GetByCode(ctx, d.Code)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return Result{}, err
		}

		switch {
		case existing != nil && !updateExisting:
			return Failed(0, "code", conflict("attribute", "code", d.Code)), nil
		case existing != nil:
			applyAttribute(existing, d)
			if _, err := i.store.Attribute().Update(ctx, *existing); err != nil {
				return Result{}, err
			}
			return Result{Outcome: OutcomeUpdated}, nil
		default:
			a := model.Attribute{Code: d.Code}
			applyAttribute(&a, d)
			_, err := i.store.Attribute().Create(ctx, a)
			if errors.Is(err, store.ErrDuplicateKey) {
				return Failed(0, "code", conflict("attribute", "code", d.Code)), nil
			}
			if err != nil {
				return Result{}, err
			}
			return Result{Outcome: OutcomeCreated}, nil
		}
	})
}

func applyAttribute(a *model.Attribute, d *catalog.AttributeDraft) {
	create := a.ID == uuid.Nil
	set := func(field string) bool { return create || d.Has(field) }

	if set("name") {
		a.Name = d.Name
	}
	if set("type") {
		a.Type = d.Type
	}
	if set("options") {
		a.Options = model.MakeJSONField(d.Options)
	}
	if set("is_required") {
		a.IsRequired = d.IsRequired
	}
	if set("is_filterable") {
		a.IsFilterable = d.IsFilterable
	}
}
