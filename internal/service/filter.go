package service

import (
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type JobFilter struct {
	Owner      string
	EntityType model.EntityType
	Status     []model.JobStatus
	Limit      int
	Offset     int
}

func (f JobFilter) query() (*store.JobQueryFilter, *store.QueryOptions) {
	filter := store.NewJobQueryFilter()
	if f.Owner != "" {
		filter = filter.ByOwner(f.Owner)
	}
	if f.EntityType != "" {
		filter = filter.ByEntityType(f.EntityType)
	}
	if len(f.Status) > 0 {
		filter = filter.ByStatus(f.Status...)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	opts := store.NewQueryOptions().WithLimit(min(limit, maxListLimit))
	if f.Offset > 0 {
		opts = opts.WithOffset(f.Offset)
	}
	return filter, opts
}
