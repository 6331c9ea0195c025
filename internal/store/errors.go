package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")

	// ErrConditionFailed is returned when a conditional update matched no row,
	// typically because the job left the expected status.
	ErrConditionFailed = errors.New("condition not met")
)
