package importer

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

type categoryImporter struct {
	store store.Store
}

func (i *categoryImporter) EntityType() model.EntityType {
	return model.EntityCategories
}

func (i *categoryImporter) Import(ctx context.Context, draft catalog.Draft, updateExisting bool) (Result, error) {
	d, ok := draft.(*catalog.CategoryDraft)
	if !ok {
		return Result{}, wrongDraft("category", draft)
	}

	return inTx(ctx, i.store, func(ctx context.Context) (Result, error) {
		existing, err := i.store.Category().GetBySlug(ctx, d.Slug)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return Result{}, err
		}
		if existing != nil && !updateExisting {
			return Failed(0, "slug", conflict("category", "slug", d.Slug)), nil
		}

		parentID, err := i.resolveParent(ctx, d, existing)
		if err != nil {
			return Result{}, err
		}

		if existing != nil {
			applyCategory(existing, d)
			if d.Has("parent") {
				existing.ParentID = parentID
			}
			if _, err := i.store.Category().Update(ctx, *existing); err != nil {
				return Result{}, err
			}
			return Result{Outcome: OutcomeUpdated}, nil
		}

		c := model.Category{Slug: d.Slug, ParentID: parentID}
		applyCategory(&c, d)
		_, err = i.store.Category().Create(ctx, c)
		if errors.Is(err, store.ErrDuplicateKey) {
			return Failed(0, "slug", conflict("category", "slug", d.Slug)), nil
		}
		if err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeCreated}, nil
	})
}

// resolveParent returns nil for an unknown parent, the category is then created at the root.
// A category is never its own parent.
func (i *categoryImporter) resolveParent(ctx context.Context, d *catalog.CategoryDraft, self *model.Category) (*uuid.UUID, error) {
	if d.Parent == "" {
		return nil, nil
	}
	parent, err := i.store.Category().FindByNameOrSlug(ctx, d.Parent)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if self != nil && parent.ID == self.ID {
		return nil, nil
	}
	return &parent.ID, nil
}

func applyCategory(c *model.Category, d *catalog.CategoryDraft) {
	create := c.ID == uuid.Nil
	set := func(field string) bool { return create || d.Has(field) }

	if set("name") {
		c.Name = d.Name
	}
	if set("description") {
		c.Description = d.Description
	}
	if set("position") {
		c.Position = d.Position
	}
	if set("is_active") {
		c.IsActive = d.IsActive
	}
}
