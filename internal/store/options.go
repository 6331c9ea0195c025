package store

import (
	"strings"
	"time"

	"github.com/openpim/catalog-bulk/internal/store/model"
	"gorm.io/gorm"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

func applyQuery(tx *gorm.DB, fns []func(tx *gorm.DB) *gorm.DB) *gorm.DB {
	for _, fn := range fns {
		tx = fn(tx)
	}
	return tx
}

type JobQueryFilter BaseQuerier

func NewJobQueryFilter() *JobQueryFilter {
	return &JobQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (f *JobQueryFilter) ByOwner(owner string) *JobQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("owner = ?", owner)
	})
	return f
}

func (f *JobQueryFilter) ByEntityType(t model.EntityType) *JobQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("entity_type = ?", t)
	})
	return f
}

func (f *JobQueryFilter) ByStatus(statuses ...model.JobStatus) *JobQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status IN ?", statuses)
	})
	return f
}

func (f *JobQueryFilter) ExpiredBefore(t time.Time) *JobQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("expires_at < ?", t)
	})
	return f
}

func (f *JobQueryFilter) WithArtifact() *JobQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("file_key <> ''")
	})
	return f
}

type MappingTemplateQueryFilter BaseQuerier

func NewMappingTemplateQueryFilter() *MappingTemplateQueryFilter {
	return &MappingTemplateQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (f *MappingTemplateQueryFilter) ByEntityType(t model.EntityType) *MappingTemplateQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("entity_type = ?", t)
	})
	return f
}

// VisibleTo keeps shared templates plus the ones owned by owner.
func (f *MappingTemplateQueryFilter) VisibleTo(owner string) *MappingTemplateQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		if owner == "" {
			return tx.Where("owner IS NULL")
		}
		return tx.Where("owner IS NULL OR owner = ?", owner)
	})
	return f
}

func (f *MappingTemplateQueryFilter) ByDefault() *MappingTemplateQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("is_default = ?", true)
	})
	return f
}

// CatalogQueryFilter composes export predicates. Every method adds one AND clause.
type CatalogQueryFilter BaseQuerier

func NewCatalogQueryFilter() *CatalogQueryFilter {
	return &CatalogQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (f *CatalogQueryFilter) ByProductStatus(statuses []string) *CatalogQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status IN ?", statuses)
	})
	return f
}

func (f *CatalogQueryFilter) ByActive(active bool) *CatalogQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("is_active = ?", active)
	})
	return f
}

// ByCategories matches products linked to any category whose slug or name is listed.
func (f *CatalogQueryFilter) ByCategories(refs []string) *CatalogQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("id IN (SELECT pc.product_id FROM product_categories pc JOIN categories c ON c.id = pc.category_id WHERE c.slug IN ? OR c.name IN ?)", refs, refs)
	})
	return f
}

// ByProductCategories is ByCategories for tables referencing products through product_id.
func (f *CatalogQueryFilter) ByProductCategories(refs []string) *CatalogQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("product_id IN (SELECT pc.product_id FROM product_categories pc JOIN categories c ON c.id = pc.category_id WHERE c.slug IN ? OR c.name IN ?)", refs, refs)
	})
	return f
}

// ByParentStatus filters variants on the status of their product.
func (f *CatalogQueryFilter) ByParentStatus(statuses []string) *CatalogQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("product_id IN (SELECT id FROM products WHERE status IN ?)", statuses)
	})
	return f
}

func (f *CatalogQueryFilter) ByParentBrands(brands []string) *CatalogQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("product_id IN (SELECT id FROM products WHERE brand IN ?)", brands)
	})
	return f
}

func (f *CatalogQueryFilter) ByBrands(brands []string) *CatalogQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("brand IN ?", brands)
	})
	return f
}

func (f *CatalogQueryFilter) ByPriceRange(min, max *float64) *CatalogQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		if min != nil {
			tx = tx.Where("price >= ?", *min)
		}
		if max != nil {
			tx = tx.Where("price <= ?", *max)
		}
		return tx
	})
	return f
}

func (f *CatalogQueryFilter) ByStockRange(min, max *int) *CatalogQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		if min != nil {
			tx = tx.Where("quantity >= ?", *min)
		}
		if max != nil {
			tx = tx.Where("quantity <= ?", *max)
		}
		return tx
	})
	return f
}

func (f *CatalogQueryFilter) ByCreatedRange(from, to *time.Time) *CatalogQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		if from != nil {
			tx = tx.Where("created_at >= ?", *from)
		}
		if to != nil {
			tx = tx.Where("created_at <= ?", *to)
		}
		return tx
	})
	return f
}

// BySearch is a case-insensitive substring match over the given columns.
func (f *CatalogQueryFilter) BySearch(term string, columns ...string) *CatalogQueryFilter {
	pattern := "%" + strings.ToLower(term) + "%"
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		clauses := make([]string, 0, len(columns))
		args := make([]any, 0, len(columns))
		for _, c := range columns {
			clauses = append(clauses, "LOWER("+c+") LIKE ?")
			args = append(args, pattern)
		}
		return tx.Where(strings.Join(clauses, " OR "), args...)
	})
	return f
}

type QueryOptions BaseQuerier

func NewQueryOptions() *QueryOptions {
	return &QueryOptions{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (o *QueryOptions) WithLimit(limit int) *QueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(limit)
	})
	return o
}

func (o *QueryOptions) WithOffset(offset int) *QueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Offset(offset)
	})
	return o
}

func (o *QueryOptions) WithOrder(order string) *QueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Order(order)
	})
	return o
}

func (o *QueryOptions) WithPreload(relations ...string) *QueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		for _, r := range relations {
			tx = tx.Preload(r)
		}
		return tx
	})
	return o
}
