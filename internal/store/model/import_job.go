package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ImportJob struct {
	ID            uuid.UUID                     `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt     time.Time                     `gorm:"not null"`
	UpdatedAt     *time.Time
	EntityType    EntityType                    `gorm:"not null;type:VARCHAR(32);index:import_jobs_entity_type_idx"`
	Status        JobStatus                     `gorm:"not null;type:VARCHAR(32);index:import_jobs_status_idx"`
	Owner         string                        `gorm:"type:VARCHAR(255);index:import_jobs_owner_idx"`
	FileName      string                        `gorm:"not null"`
	FileFormat    string                        `gorm:"not null;type:VARCHAR(16)"`
	FileKey       string
	FileSize      int64
	Mapping       *JSONField[map[string]string] `gorm:"type:jsonb"`
	Options       *JSONField[ImportOptions]     `gorm:"type:jsonb"`
	TotalRows     int                           `gorm:"not null;default:0"`
	ProcessedRows int                           `gorm:"not null;default:0"`
	SuccessCount  int                           `gorm:"not null;default:0"`
	ErrorCount    int                           `gorm:"not null;default:0"`
	SkipCount     int                           `gorm:"not null;default:0"`
	Errors        *JSONField[[]RowError]        `gorm:"type:jsonb"`
	Summary       *JSONField[ImportSummary]     `gorm:"type:jsonb"`
	QueueJobID    string                        `gorm:"type:VARCHAR(64)"`
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

type ImportJobList []ImportJob

type ImportOptions struct {
	SkipHeader        bool       `json:"skipHeader"`
	UpdateExisting    bool       `json:"updateExisting"`
	ValidateOnly      bool       `json:"validateOnly"`
	Delimiter         string     `json:"delimiter,omitempty"`
	Encoding          string     `json:"encoding,omitempty"`
	BatchSize         int        `json:"batchSize,omitempty"`
	MappingTemplateID *uuid.UUID `json:"mappingTemplateId,omitempty"`
}

// RowError is one entry of the bounded error list. Row 0 is reserved for job level failures.
type RowError struct {
	Row     int               `json:"row"`
	Field   string            `json:"field,omitempty"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

type ImportSummary struct {
	Created    int   `json:"created"`
	Updated    int   `json:"updated"`
	Skipped    int   `json:"skipped"`
	Failed     int   `json:"failed"`
	DurationMs int64 `json:"durationMs"`
}

// ImportProgress is a delta applied atomically to a running job.
type ImportProgress struct {
	Processed int
	Success   int
	Failed    int
	Skipped   int
	Created   int
	Updated   int
	Errors    []RowError
}

func (p ImportProgress) IsEmpty() bool {
	return p.Processed == 0 && p.Success == 0 && p.Failed == 0 && p.Skipped == 0 && len(p.Errors) == 0
}

func (j *ImportJob) MappingData() map[string]string {
	if j.Mapping == nil {
		return map[string]string{}
	}
	return j.Mapping.Data
}

func (j *ImportJob) OptionsData() ImportOptions {
	if j.Options == nil {
		return ImportOptions{}
	}
	return j.Options.Data
}

func (j *ImportJob) ErrorsData() []RowError {
	if j.Errors == nil {
		return nil
	}
	return j.Errors.Data
}

func (j *ImportJob) SummaryData() ImportSummary {
	if j.Summary == nil {
		return ImportSummary{}
	}
	return j.Summary.Data
}

func (j ImportJob) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}
