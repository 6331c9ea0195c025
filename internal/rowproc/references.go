package rowproc

import (
	"context"
	"errors"

	"github.com/openpim/catalog-bulk/internal/store"
)

// References resolves soft references against the catalog.
type References interface {
	ProductExists(ctx context.Context, sku string) (bool, error)
	CategoryExists(ctx context.Context, ref string) (bool, error)
	AttributeExists(ctx context.Context, code string) (bool, error)
}

// StoreReferences caches positive lookups only: a reference created by an earlier
// row of the same file must still resolve.
type StoreReferences struct {
	store      store.Store
	products   map[string]bool
	categories map[string]bool
	attributes map[string]bool
}

var _ References = (*StoreReferences)(nil)

func NewStoreReferences(s store.Store) *StoreReferences {
	return &StoreReferences{
		store:      s,
		products:   map[string]bool{},
		categories: map[string]bool{},
		attributes: map[string]bool{},
	}
}

func (r *StoreReferences) ProductExists(ctx context.Context, sku string) (bool, error) {
	return r.lookup(r.products, sku, func() error {
		_, err := r.store.Product().GetBySKU(ctx, sku)
		return err
	})
}

func (r *StoreReferences) CategoryExists(ctx context.Context, ref string) (bool, error) {
	return r.lookup(r.categories, ref, func() error {
		_, err := r.store.Category().FindByNameOrSlug(ctx, ref)
		return err
	})
}

func (r *StoreReferences) AttributeExists(ctx context.Context, code string) (bool, error) {
	return r.lookup(r.attributes, code, func() error {
		_, err := r.store.Attribute().GetByCode(ctx, code)
		return err
	})
}

func (r *StoreReferences) lookup(cache map[string]bool, key string, find func() error) (bool, error) {
	if cache[key] {
		return true, nil
	}
	err := find()
	if errors.Is(err, store.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	cache[key] = true
	return true, nil
}
