package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/openpim/catalog-bulk/internal/jobs"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrImportJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "import job")
}

func NewErrExportJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "export job")
}

func NewErrMappingNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "mapping template")
}

// ErrJobState is returned for an operation the job's current status does not allow.
type ErrJobState struct {
	error
	JobID     uuid.UUID
	State     model.JobStatus
	Operation string
}

const (
	opProcess  = "process"
	opCancel   = "cancel"
	opDownload = "download"
)

func NewErrJobState(id uuid.UUID, state model.JobStatus, operation string) *ErrJobState {
	return &ErrJobState{
		error:     fmt.Errorf("cannot %s job %s in state %s", operation, id, state),
		JobID:     id,
		State:     state,
		Operation: operation,
	}
}

// Is lets queue workers drop redelivered work: a job that cannot be processed any
// more is not runnable.
func (e *ErrJobState) Is(target error) bool {
	return target == jobs.ErrNotRunnable && e.Operation == opProcess
}

type ErrExportExpired struct {
	error
}

func NewErrExportExpired(id uuid.UUID) *ErrExportExpired {
	return &ErrExportExpired{fmt.Errorf("export %s has expired", id)}
}

type ErrArtifactMissing struct {
	error
}

func NewErrArtifactMissing(id uuid.UUID, key string) *ErrArtifactMissing {
	return &ErrArtifactMissing{fmt.Errorf("artifact %q of export %s is missing", key, id)}
}

type ErrInvalidMapping struct {
	error
	Reasons []string
}

func NewErrInvalidMapping(reasons []string) *ErrInvalidMapping {
	return &ErrInvalidMapping{
		error:   fmt.Errorf("invalid mapping: %s", strings.Join(reasons, "; ")),
		Reasons: reasons,
	}
}

type ErrFileFormat struct {
	error
}

func NewErrFileFormat(err error) *ErrFileFormat {
	return &ErrFileFormat{fmt.Errorf("bad request: %w", err)}
}

func (e *ErrFileFormat) Unwrap() error {
	return errors.Unwrap(e.error)
}

type ErrInvalidRequest struct {
	error
}

func NewErrInvalidRequest(format string, args ...any) *ErrInvalidRequest {
	return &ErrInvalidRequest{fmt.Errorf(format, args...)}
}

type ErrDuplicate struct {
	error
}

func NewErrDuplicate(resourceType, name string) *ErrDuplicate {
	return &ErrDuplicate{fmt.Errorf("%s %q already exists", resourceType, name)}
}
