package model

import "fmt"

type EntityType string

const (
	EntityProducts   EntityType = "products"
	EntityVariants   EntityType = "variants"
	EntityCategories EntityType = "categories"
	EntityAttributes EntityType = "attributes"
)

var EntityTypes = []EntityType{EntityProducts, EntityVariants, EntityCategories, EntityAttributes}

func ParseEntityType(s string) (EntityType, error) {
	for _, t := range EntityTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusCancelled  JobStatus = "CANCELLED"
)

func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the state machine allows s -> next.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusProcessing || next == JobStatusCancelled
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusFailed || next == JobStatusCancelled
	default:
		return false
	}
}

func ParseJobStatus(s string) (JobStatus, error) {
	for _, st := range []JobStatus{JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed, JobStatusCancelled} {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown job status %q", s)
}
