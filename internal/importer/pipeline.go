package importer

import (
	"context"
	"errors"
	"io"

	"github.com/openpim/catalog-bulk/internal/rowproc"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/internal/tabular"
	"github.com/openpim/catalog-bulk/pkg/metrics"
)

// ErrStopped is returned when a progress write found the job outside PROCESSING,
// usually because it was cancelled.
var ErrStopped = errors.New("job is no longer processing")

type Options struct {
	BatchSize     int
	ProgressEvery int
	MaxErrors     int
	// StartRow is 1-based. Earlier rows are counted as skipped.
	StartRow       int
	UpdateExisting bool
	// DryRun validates and transforms without committing.
	DryRun bool
}

// FlushFunc persists a progress delta. store.ErrConditionFailed means the job left PROCESSING.
type FlushFunc func(ctx context.Context, delta model.ImportProgress) error

type Stats struct {
	// BatchSizes lists the number of rows of each batch, in order.
	BatchSizes []int
}

// Pipeline runs the rows of one file through map, validate, transform and import.
// Batches run sequentially and the job status is checked at every batch boundary.
type Pipeline struct {
	proc     *rowproc.Processor
	importer RowImporter
	opts     Options
}

func NewPipeline(proc *rowproc.Processor, importer RowImporter, opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 10
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = 100
	}
	return &Pipeline{proc: proc, importer: importer, opts: opts}
}

// Run consumes rd. Row failures are recorded through flush, any returned error is job level.
func (p *Pipeline) Run(ctx context.Context, rd tabular.Reader, flush FlushFunc) (Stats, error) {
	var stats Stats

	if p.proc.EntityType() == model.EntityVariants && !p.proc.MapsTarget("parent_sku") {
		return stats, ErrMissingParentColumn
	}

	tally := NewTally(p.opts.MaxErrors)
	stopped := false
	push := func() error {
		if tally.Pending() == 0 {
			return nil
		}
		delta := tally.Take()
		p.observe(delta)
		err := flush(ctx, delta)
		if errors.Is(err, store.ErrConditionFailed) {
			stopped = true
			return nil
		}
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		batch, readErr := readBatch(rd, p.opts.BatchSize)
		if len(batch) > 0 {
			stats.BatchSizes = append(stats.BatchSizes, len(batch))
		}

		for _, rec := range batch {
			result, err := p.processRow(ctx, rec)
			if err != nil {
				if flushErr := push(); flushErr != nil {
					return stats, errors.Join(err, flushErr)
				}
				return stats, err
			}
			tally.Add(result)
			if tally.Pending() >= p.opts.ProgressEvery {
				if err := push(); err != nil {
					return stats, err
				}
			}
		}
		if err := push(); err != nil {
			return stats, err
		}

		switch {
		case errors.Is(readErr, io.EOF):
			return stats, nil
		case readErr != nil:
			return stats, readErr
		case stopped:
			return stats, ErrStopped
		}
	}
}

func (p *Pipeline) processRow(ctx context.Context, rec tabular.Record) (Result, error) {
	if rec.Row < p.opts.StartRow || rec.IsBlank() {
		return Result{Row: rec.Row, Outcome: OutcomeSkipped}, nil
	}

	values := p.proc.Map(rec)
	report, err := p.proc.Validate(ctx, values)
	if err != nil {
		return Result{}, err
	}
	if !report.Valid() {
		r := Failed(rec.Row, "", report.Err())
		r.Data = rec.Map()
		return r, nil
	}
	if p.opts.DryRun {
		return Result{Row: rec.Row, Outcome: OutcomeValid}, nil
	}

	result, err := p.importer.Import(ctx, p.proc.Transform(values), p.opts.UpdateExisting)
	if err != nil {
		return Result{}, err
	}
	result.Row = rec.Row
	if result.Outcome == OutcomeFailed {
		result.Data = rec.Map()
	}
	return result, nil
}

func (p *Pipeline) observe(delta model.ImportProgress) {
	entity := string(p.proc.EntityType())
	metrics.IncreaseImportRows(entity, string(OutcomeCreated), delta.Created)
	metrics.IncreaseImportRows(entity, string(OutcomeUpdated), delta.Updated)
	metrics.IncreaseImportRows(entity, string(OutcomeFailed), delta.Failed)
	metrics.IncreaseImportRows(entity, string(OutcomeSkipped), delta.Skipped)
}

// readBatch returns up to n records. The error is io.EOF once the reader is drained,
// the records read before it are still returned.
func readBatch(rd tabular.Reader, n int) ([]tabular.Record, error) {
	batch := make([]tabular.Record, 0, n)
	for len(batch) < n {
		rec, err := rd.Next()
		if err != nil {
			return batch, err
		}
		batch = append(batch, rec)
	}
	return batch, nil
}
