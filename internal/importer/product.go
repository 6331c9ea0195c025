package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

type productImporter struct {
	store store.Store
}

func (i *productImporter) EntityType() model.EntityType {
	return model.EntityProducts
}

func (i *productImporter) Import(ctx context.Context, draft catalog.Draft, updateExisting bool) (Result, error) {
	d, ok := draft.(*catalog.ProductDraft)
	if !ok {
		return Result{}, wrongDraft("product", draft)
	}

	return inTx(ctx, i.store, func(ctx context.Context) (Result, error) {
		existing, err := i.store.Product().GetBySKU(ctx, d.SKU)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return Result{}, err
		}

		var (
			product *model.Product
			outcome Outcome
		)
		switch {
		case existing != nil && !updateExisting:
			return Failed(0, "sku", conflict("product", "sku", d.SKU)), nil
		case existing != nil:
			applyProduct(existing, d)
			if product, err = i.store.Product().Update(ctx, *existing); err != nil {
				return Result{}, err
			}
			outcome = OutcomeUpdated
		default:
			p := model.Product{SKU: d.SKU}
			applyProduct(&p, d)
			p.Status, p.Type = d.Status, d.Type
			product, err = i.store.Product().Create(ctx, p)
			if errors.Is(err, store.ErrDuplicateKey) {
				return Failed(0, "sku", conflict("product", "sku", d.SKU)), nil
			}
			if err != nil {
				return Result{}, err
			}
			outcome = OutcomeCreated
		}

		if err := i.linkRelations(ctx, product.ID, d); err != nil {
			return Result{}, err
		}
		return Result{Outcome: outcome}, nil
	})
}

// applyProduct copies the fields the row carried. On create every field counts as present.
func applyProduct(p *model.Product, d *catalog.ProductDraft) {
	create := p.ID == uuid.Nil
	set := func(field string) bool { return create || d.Has(field) }

	if set("name") {
		p.Name = d.Name
	}
	if set("description") {
		p.Description = d.Description
	}
	if set("price") {
		p.Price = d.Price
	}
	if set("compare_at_price") {
		p.CompareAtPrice = d.CompareAtPrice
	}
	if set("quantity") {
		p.Quantity = d.Quantity
	}
	if set("weight") {
		p.Weight = d.Weight
	}
	if d.Has("status") {
		p.Status = d.Status
	}
	if d.Has("type") {
		p.Type = d.Type
	}
	if set("brand") {
		p.Brand = d.Brand
	}
	if set("barcode") {
		p.Barcode = d.Barcode
	}
	if set("tags") {
		p.Tags = model.MakeJSONField(d.Tags)
	}
}

// linkRelations resolves soft references. Unknown categories and attribute codes were
// reported as warnings during validation and are skipped here.
func (i *productImporter) linkRelations(ctx context.Context, productID uuid.UUID, d *catalog.ProductDraft) error {
	if d.Has("categories") {
		ids := make([]uuid.UUID, 0, len(d.Categories))
		for _, ref := range d.Categories {
			c, err := i.store.Category().FindByNameOrSlug(ctx, ref)
			if errors.Is(err, store.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("resolving category %q: %w", ref, err)
			}
			ids = append(ids, c.ID)
		}
		if err := i.store.Product().SetCategories(ctx, productID, ids); err != nil {
			return err
		}
	}

	if len(d.Attributes) > 0 {
		values := make(map[uuid.UUID]string, len(d.Attributes))
		for code, v := range d.Attributes {
			a, err := i.store.Attribute().GetByCode(ctx, code)
			if errors.Is(err, store.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("resolving attribute %q: %w", code, err)
			}
			values[a.ID] = v
		}
		if err := i.store.Product().SetAttributeValues(ctx, productID, values); err != nil {
			return err
		}
	}

	if d.Has("images") {
		if err := i.store.Product().SetMedia(ctx, productID, d.Images); err != nil {
			return err
		}
	}
	return nil
}
