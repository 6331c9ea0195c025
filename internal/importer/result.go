package importer

import (
	"errors"

	"github.com/openpim/catalog-bulk/internal/rowproc"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

var (
	// ErrConflict is a duplicate natural key on create. Row level.
	ErrConflict = errors.New("conflict")
	// ErrMissingParentColumn aborts a variant import whose mapping has no parent_sku target.
	ErrMissingParentColumn = errors.New("variant import requires a column mapped to parent_sku")
)

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
	// OutcomeValid is reported by dry runs for rows that would have been committed.
	OutcomeValid Outcome = "valid"
)

// Result is the outcome of one row. Err is set only for OutcomeFailed.
type Result struct {
	Row     int
	Outcome Outcome
	Field   string
	Err     error
	Data    map[string]string
}

func Failed(row int, field string, err error) Result {
	var rowErr *rowproc.RowError
	if field == "" && errors.As(err, &rowErr) {
		field = rowErr.Field()
	}
	return Result{Row: row, Outcome: OutcomeFailed, Field: field, Err: err}
}

// Tally folds results into a progress delta.
type Tally struct {
	delta model.ImportProgress
	// maxErrors bounds the buffered error entries, the store caps the persisted list again.
	maxErrors int
}

func NewTally(maxErrors int) *Tally {
	return &Tally{maxErrors: maxErrors}
}

func (t *Tally) Add(r Result) {
	t.delta.Processed++
	switch r.Outcome {
	case OutcomeCreated:
		t.delta.Success++
		t.delta.Created++
	case OutcomeUpdated:
		t.delta.Success++
		t.delta.Updated++
	case OutcomeValid:
		t.delta.Success++
	case OutcomeSkipped:
		t.delta.Skipped++
	case OutcomeFailed:
		t.delta.Failed++
		if len(t.delta.Errors) < t.maxErrors {
			msg := "row failed"
			if r.Err != nil {
				msg = r.Err.Error()
			}
			t.delta.Errors = append(t.delta.Errors, model.RowError{
				Row:     r.Row,
				Field:   r.Field,
				Message: msg,
				Data:    r.Data,
			})
		}
	}
}

func (t *Tally) Pending() int {
	return t.delta.Processed
}

// Take returns the accumulated delta and resets the tally.
func (t *Tally) Take() model.ImportProgress {
	d := t.delta
	t.delta = model.ImportProgress{}
	return d
}
