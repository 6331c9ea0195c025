package model

import (
	"time"

	"github.com/google/uuid"
)

// Transformation identifiers accepted in MappingTemplate.Transformations.
const (
	TransformTrim      = "trim"
	TransformLowercase = "lowercase"
	TransformUppercase = "uppercase"
	TransformSlugify   = "slugify"
)

// Rule overrides accepted in MappingTemplate.ValidationRules.
const (
	RuleRequired = "required"
	RuleOptional = "optional"
)

type MappingTemplate struct {
	ID              uuid.UUID                     `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt       time.Time                     `gorm:"not null"`
	UpdatedAt       *time.Time
	Name            string                        `gorm:"not null"`
	Description     string
	EntityType      EntityType                    `gorm:"not null;type:VARCHAR(32);index:mapping_templates_type_owner_idx"`
	Mapping         *JSONField[map[string]string] `gorm:"type:jsonb;not null"`
	Transformations *JSONField[map[string]string] `gorm:"type:jsonb"`
	DefaultValues   *JSONField[map[string]string] `gorm:"type:jsonb"`
	ValidationRules *JSONField[map[string]string] `gorm:"type:jsonb"`
	IsDefault       bool                          `gorm:"not null;default:false"`
	UsageCount      int                           `gorm:"not null;default:0"`
	// Owner nil means the template is shared.
	Owner *string `gorm:"type:VARCHAR(255);index:mapping_templates_type_owner_idx"`
}

type MappingTemplateList []MappingTemplate

func (m *MappingTemplate) MappingData() map[string]string {
	return jsonMap(m.Mapping)
}

func (m *MappingTemplate) TransformationsData() map[string]string {
	return jsonMap(m.Transformations)
}

func (m *MappingTemplate) DefaultValuesData() map[string]string {
	return jsonMap(m.DefaultValues)
}

func (m *MappingTemplate) ValidationRulesData() map[string]string {
	return jsonMap(m.ValidationRules)
}

func jsonMap(f *JSONField[map[string]string]) map[string]string {
	if f == nil || f.Data == nil {
		return map[string]string{}
	}
	return f.Data
}
