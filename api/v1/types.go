// Package v1 holds the JSON documents of the bulk catalog API.
package v1

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusCancelled  JobStatus = "CANCELLED"
)

type Error struct {
	Message   string   `json:"message"`
	Reasons   []string `json:"reasons,omitempty"`
	State     *string  `json:"state,omitempty"`
	RequestId *string  `json:"requestId,omitempty"`
}

type Health struct {
	Status string `json:"status"`
}

type ImportOptions struct {
	SkipHeader        *bool      `json:"skipHeader,omitempty"`
	UpdateExisting    bool       `json:"updateExisting"`
	ValidateOnly      bool       `json:"validateOnly"`
	Delimiter         string     `json:"delimiter,omitempty" validate:"omitempty,single_char"`
	Encoding          string     `json:"encoding,omitempty" validate:"omitempty,encoding"`
	BatchSize         int        `json:"batchSize,omitempty" validate:"gte=0,lte=10000"`
	MappingTemplateId *uuid.UUID `json:"mappingTemplateId,omitempty"`
}

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

type ImportJob struct {
	Id            uuid.UUID         `json:"id"`
	EntityType    string            `json:"entityType"`
	Status        JobStatus         `json:"status"`
	FileName      string            `json:"fileName"`
	FileFormat    string            `json:"fileFormat"`
	FileSize      int64             `json:"fileSize"`
	Mapping       map[string]string `json:"mapping"`
	Options       ImportOptions     `json:"options"`
	TotalRows     int               `json:"totalRows"`
	ProcessedRows int               `json:"processedRows"`
	SuccessCount  int               `json:"successCount"`
	ErrorCount    int               `json:"errorCount"`
	SkipCount     int               `json:"skipCount"`
	Progress      int               `json:"progress"`
	Errors        []RowError        `json:"errors"`
	Summary       *ImportSummary    `json:"summary,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	StartedAt     *time.Time        `json:"startedAt,omitempty"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
}

type ImportJobList []ImportJob

type ProcessImport struct {
	StartRow  int `json:"startRow" validate:"gte=0"`
	BatchSize int `json:"batchSize" validate:"gte=0,lte=10000"`
}

type MappingSuggestion struct {
	Confidence             float64           `json:"confidence"`
	Mapping                map[string]string `json:"mapping"`
	UnmappedSource         []string          `json:"unmappedSource"`
	UnmappedTargetRequired []string          `json:"unmappedTargetRequired"`
}

type ImportPreview struct {
	Headers          []string            `json:"headers"`
	Rows             []map[string]string `json:"rows"`
	SuggestedMapping MappingSuggestion   `json:"suggestedMapping"`
}

type ValidationReport struct {
	Valid       bool       `json:"valid"`
	TotalRows   int        `json:"totalRows"`
	ValidRows   int        `json:"validRows"`
	InvalidRows int        `json:"invalidRows"`
	Errors      []RowError `json:"errors"`
	Warnings    []RowError `json:"warnings"`
}

type ExportFilter struct {
	Status      []string   `json:"status,omitempty"`
	Categories  []string   `json:"categories,omitempty"`
	Brands      []string   `json:"brands,omitempty"`
	PriceMin    *float64   `json:"priceMin,omitempty" validate:"omitempty,gte=0"`
	PriceMax    *float64   `json:"priceMax,omitempty" validate:"omitempty,gte=0"`
	StockMin    *int       `json:"stockMin,omitempty" validate:"omitempty,gte=0"`
	StockMax    *int       `json:"stockMax,omitempty" validate:"omitempty,gte=0"`
	CreatedFrom *time.Time `json:"createdFrom,omitempty"`
	CreatedTo   *time.Time `json:"createdTo,omitempty"`
	Search      string     `json:"search,omitempty"`
}

type ExportOptions struct {
	IncludeVariants   bool   `json:"includeVariants"`
	IncludeImages     bool   `json:"includeImages"`
	IncludeCategories bool   `json:"includeCategories"`
	IncludeAttributes bool   `json:"includeAttributes"`
	Delimiter         string `json:"delimiter,omitempty" validate:"omitempty,single_char"`
	Encoding          string `json:"encoding,omitempty" validate:"omitempty,encoding"`
}

type ExportCreate struct {
	EntityType string        `json:"entityType" validate:"required,entity_type"`
	Format     string        `json:"format" validate:"omitempty,export_format"`
	Filters    ExportFilter  `json:"filters"`
	Fields     []string      `json:"fields,omitempty"`
	Options    ExportOptions `json:"options"`
}

type ExportJob struct {
	Id               uuid.UUID     `json:"id"`
	EntityType       string        `json:"entityType"`
	Format           string        `json:"format"`
	Status           JobStatus     `json:"status"`
	Filters          ExportFilter  `json:"filters"`
	Fields           []string      `json:"fields,omitempty"`
	Options          ExportOptions `json:"options"`
	TotalRecords     int           `json:"totalRecords"`
	ProcessedRecords int           `json:"processedRecords"`
	Progress         int           `json:"progress"`
	FileName         string        `json:"fileName,omitempty"`
	FileSize         int64         `json:"fileSize,omitempty"`
	DownloadUrl      string        `json:"downloadUrl,omitempty"`
	ErrorMessage     string        `json:"errorMessage,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	StartedAt        *time.Time    `json:"startedAt,omitempty"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty"`
	ExpiresAt        time.Time     `json:"expiresAt"`
}

type ExportJobList []ExportJob

type MappingTemplateCreate struct {
	Name            string            `json:"name" validate:"required,max=255"`
	Description     string            `json:"description"`
	EntityType      string            `json:"entityType" validate:"required,entity_type"`
	Mapping         map[string]string `json:"mapping" validate:"required"`
	Transformations map[string]string `json:"transformations,omitempty" validate:"dive,transformation"`
	DefaultValues   map[string]string `json:"defaultValues,omitempty"`
	ValidationRules map[string]string `json:"validationRules,omitempty" validate:"dive,oneof=required optional"`
	IsDefault       bool              `json:"isDefault"`
	Shared          bool              `json:"shared"`
}

type MappingTemplateUpdate struct {
	Name            string            `json:"name" validate:"required,max=255"`
	Description     string            `json:"description"`
	Mapping         map[string]string `json:"mapping" validate:"required"`
	Transformations map[string]string `json:"transformations,omitempty" validate:"dive,transformation"`
	DefaultValues   map[string]string `json:"defaultValues,omitempty"`
	ValidationRules map[string]string `json:"validationRules,omitempty" validate:"dive,oneof=required optional"`
	IsDefault       bool              `json:"isDefault"`
}

type MappingTemplate struct {
	Id              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	EntityType      string            `json:"entityType"`
	Mapping         map[string]string `json:"mapping"`
	Transformations map[string]string `json:"transformations"`
	DefaultValues   map[string]string `json:"defaultValues"`
	ValidationRules map[string]string `json:"validationRules"`
	IsDefault       bool              `json:"isDefault"`
	UsageCount      int               `json:"usageCount"`
	Owner           *string           `json:"owner,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       *time.Time        `json:"updatedAt,omitempty"`
}

type MappingTemplateList []MappingTemplate
