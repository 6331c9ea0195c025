package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/rowproc"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

type variantImporter struct {
	store store.Store
}

func (i *variantImporter) EntityType() model.EntityType {
	return model.EntityVariants
}

func (i *variantImporter) Import(ctx context.Context, draft catalog.Draft, updateExisting bool) (Result, error) {
	d, ok := draft.(*catalog.VariantDraft)
	if !ok {
		return Result{}, wrongDraft("variant", draft)
	}

	return inTx(ctx, i.store, func(ctx context.Context) (Result, error) {
		parent, err := i.store.Product().GetBySKU(ctx, d.ParentSKU)
		if errors.Is(err, store.ErrRecordNotFound) {
			// the parent may have been removed between validation and commit
			return Failed(0, "parent_sku", fmt.Errorf("parent product %q not found: %w", d.ParentSKU, rowproc.ErrReference)), nil
		}
		if err != nil {
			return Result{}, err
		}

		existing, err := i.store.Variant().GetBySKU(ctx, d.SKU)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return Result{}, err
		}

		switch {
		case existing != nil && !updateExisting:
			return Failed(0, "sku", conflict("variant", "sku", d.SKU)), nil
		case existing != nil:
			existing.ProductID = parent.ID
			applyVariant(existing, d)
			if _, err := i.store.Variant().Update(ctx, *existing); err != nil {
				return Result{}, err
			}
			return Result{Outcome: OutcomeUpdated}, nil
		default:
			v := model.Variant{SKU: d.SKU, ProductID: parent.ID}
			applyVariant(&v, d)
			_, err := i.store.Variant().Create(ctx, v)
			if errors.Is(err, store.ErrDuplicateKey) {
				return Failed(0, "sku", conflict("variant", "sku", d.SKU)), nil
			}
			if err != nil {
				return Result{}, err
			}
			return Result{Outcome: OutcomeCreated}, nil
		}
	})
}

func applyVariant(v *model.Variant, d *catalog.VariantDraft) {
	create := v.ID == uuid.Nil
	set := func(field string) bool { return create || d.Has(field) }

	if set("name") {
		v.Name = d.Name
	}
	if set("price") {
		v.Price = d.Price
	}
	if set("compare_at_price") {
		v.CompareAtPrice = d.CompareAtPrice
	}
	if set("quantity") {
		v.Quantity = d.Quantity
	}
	if set("weight") {
		v.Weight = d.Weight
	}
	if set("barcode") {
		v.Barcode = d.Barcode
	}
	if set("options") {
		v.Options = model.MakeJSONField(d.Options)
	}
}
