package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ExportFormat string

const (
	FormatCSV   ExportFormat = "csv"
	FormatExcel ExportFormat = "excel"
	FormatJSON  ExportFormat = "json"
)

func ParseExportFormat(s string) (ExportFormat, bool) {
	switch ExportFormat(s) {
	case FormatCSV, FormatExcel, FormatJSON:
		return ExportFormat(s), true
	case "xlsx":
		return FormatExcel, true
	default:
		return "", false
	}
}

type ExportJob struct {
	ID               uuid.UUID                 `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt        time.Time                 `gorm:"not null"`
	UpdatedAt        *time.Time
	EntityType       EntityType                `gorm:"not null;type:VARCHAR(32);index:export_jobs_entity_type_idx"`
	Format           ExportFormat              `gorm:"not null;type:VARCHAR(16)"`
	Status           JobStatus                 `gorm:"not null;type:VARCHAR(32);index:export_jobs_status_idx"`
	Owner            string                    `gorm:"type:VARCHAR(255);index:export_jobs_owner_idx"`
	Filters          *JSONField[ExportFilter]  `gorm:"type:jsonb"`
	Fields           *JSONField[[]string]      `gorm:"type:jsonb"`
	Options          *JSONField[ExportOptions] `gorm:"type:jsonb"`
	TotalRecords     int                       `gorm:"not null;default:0"`
	ProcessedRecords int                       `gorm:"not null;default:0"`
	FileName         string
	FileKey          string
	FileSize         int64
	DownloadURL      string
	ErrorMessage     string
	QueueJobID       string                    `gorm:"type:VARCHAR(64)"`
	ExpiresAt        time.Time                 `gorm:"not null"`
	StartedAt        *time.Time
	CompletedAt      *time.Time
}

type ExportJobList []ExportJob

// ExportFilter predicates are optional and combined with AND.
type ExportFilter struct {
	Status      []string   `json:"status,omitempty"`
	Categories  []string   `json:"categories,omitempty"`
	Brands      []string   `json:"brands,omitempty"`
	PriceMin    *float64   `json:"priceMin,omitempty"`
	PriceMax    *float64   `json:"priceMax,omitempty"`
	StockMin    *int       `json:"stockMin,omitempty"`
	StockMax    *int       `json:"stockMax,omitempty"`
	CreatedFrom *time.Time `json:"createdFrom,omitempty"`
	CreatedTo   *time.Time `json:"createdTo,omitempty"`
	Search      string     `json:"search,omitempty"`
}

type ExportOptions struct {
	IncludeVariants   bool   `json:"includeVariants"`
	IncludeImages     bool   `json:"includeImages"`
	IncludeCategories bool   `json:"includeCategories"`
	IncludeAttributes bool   `json:"includeAttributes"`
	Delimiter         string `json:"delimiter,omitempty"`
	Encoding          string `json:"encoding,omitempty"`
}

// IsExpired is a property of the record: the artifact may still exist.
func (j *ExportJob) IsExpired(now time.Time) bool {
	return j.Status == JobStatusCompleted && now.After(j.ExpiresAt)
}

func (j *ExportJob) FilterData() ExportFilter {
	if j.Filters == nil {
		return ExportFilter{}
	}
	return j.Filters.Data
}

func (j *ExportJob) FieldsData() []string {
	if j.Fields == nil {
		return nil
	}
	return j.Fields.Data
}

func (j *ExportJob) OptionsData() ExportOptions {
	if j.Options == nil {
		return ExportOptions{}
	}
	return j.Options.Data
}

func (j ExportJob) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}
