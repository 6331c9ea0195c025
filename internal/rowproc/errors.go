package rowproc

import (
	"errors"
	"strings"
)

var (
	// ErrValidation marks a row that breaks a field rule. Row level, never fatal.
	ErrValidation = errors.New("validation failed")
	// ErrReference marks a reference that does not resolve in the catalog.
	ErrReference = errors.New("unresolved reference")
)

type Issue struct {
	Field   string
	Message string
	// Kind is ErrValidation or ErrReference.
	Kind error
}

// RowError carries every hard issue of one row.
type RowError struct {
	Issues []Issue
}

func (e *RowError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		msgs = append(msgs, i.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e *RowError) Unwrap() []error {
	var kinds []error
	for _, i := range e.Issues {
		dup := false
		for _, k := range kinds {
			if k == i.Kind {
				dup = true
				break
			}
		}
		if !dup {
			kinds = append(kinds, i.Kind)
		}
	}
	return kinds
}

// Field is the first offending field, used for the job error list.
func (e *RowError) Field() string {
	if len(e.Issues) == 0 {
		return ""
	}
	return e.Issues[0].Field
}

type Report struct {
	Errors   []Issue
	Warnings []Issue
}

func (r Report) Valid() bool {
	return len(r.Errors) == 0
}

// Err is nil for a valid row.
func (r Report) Err() error {
	if r.Valid() {
		return nil
	}
	return &RowError{Issues: r.Errors}
}

func (r Report) ErrorMessages() []string {
	return messages(r.Errors)
}

func (r Report) WarningMessages() []string {
	return messages(r.Warnings)
}

func messages(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Message)
	}
	return out
}
