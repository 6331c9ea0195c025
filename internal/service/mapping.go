package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/mapping"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/pkg/log"
)

var (
	knownTransformations = []string{model.TransformTrim, model.TransformLowercase, model.TransformUppercase, model.TransformSlugify}
	knownRules           = []string{model.RuleRequired, model.RuleOptional}
)

type MappingService struct {
	store store.Store
}

func NewMappingService(s store.Store) *MappingService {
	return &MappingService{store: s}
}

type MappingInput struct {
	Name            string
	Description     string
	EntityType      model.EntityType
	Mapping         map[string]string
	Transformations map[string]string
	DefaultValues   map[string]string
	ValidationRules map[string]string
	IsDefault       bool
	// Owner nil creates a shared template.
	Owner *string
}

func (in MappingInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return NewErrInvalidRequest("mapping template name is required")
	}
	if _, err := model.ParseEntityType(string(in.EntityType)); err != nil {
		return NewErrInvalidRequest("%s", err)
	}

	result := mapping.Validate(in.Mapping, in.EntityType)
	reasons := append([]string(nil), result.Errors...)
	for _, target := range sortedKeys(in.Transformations) {
		if !catalog.IsKnownField(in.EntityType, target) {
			reasons = append(reasons, fmt.Sprintf("transformation for unknown field %q", target))
		} else if !contains(knownTransformations, in.Transformations[target]) {
			reasons = append(reasons, fmt.Sprintf("unknown transformation %q for field %q", in.Transformations[target], target))
		}
	}
	for _, target := range sortedKeys(in.DefaultValues) {
		if !catalog.IsKnownField(in.EntityType, target) {
			reasons = append(reasons, fmt.Sprintf("default value for unknown field %q", target))
		}
	}
	for _, target := range sortedKeys(in.ValidationRules) {
		if !catalog.IsKnownField(in.EntityType, target) {
			reasons = append(reasons, fmt.Sprintf("validation rule for unknown field %q", target))
		} else if !contains(knownRules, in.ValidationRules[target]) {
			reasons = append(reasons, fmt.Sprintf("unknown validation rule %q for field %q", in.ValidationRules[target], target))
		}
	}
	if len(reasons) > 0 {
		return NewErrInvalidMapping(reasons)
	}
	return nil
}

func (in MappingInput) toModel() model.MappingTemplate {
	return model.MappingTemplate{
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		EntityType:      in.EntityType,
		Mapping:         model.MakeJSONField(in.Mapping),
		Transformations: model.MakeJSONField(orEmpty(in.Transformations)),
		DefaultValues:   model.MakeJSONField(orEmpty(in.DefaultValues)),
		ValidationRules: model.MakeJSONField(orEmpty(in.ValidationRules)),
		IsDefault:       in.IsDefault,
		Owner:           in.Owner,
	}
}

func (s *MappingService) CreateMapping(ctx context.Context, in MappingInput) (*model.MappingTemplate, error) {
	tracer := log.NewDebugLogger("mapping_service").
		WithContext(ctx).
		Operation("create_mapping").
		WithString("entity_type", string(in.EntityType)).
		WithString("name", in.Name).
		Build()

	if err := in.validate(); err != nil {
		return nil, err
	}
	tpl, err := s.store.MappingTemplate().Create(ctx, in.toModel())
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, NewErrDuplicate("mapping template", in.Name)
		}
		tracer.Error(err).Log()
		return nil, err
	}

	tracer.Success().WithUUID("id", tpl.ID).Log()
	return tpl, nil
}

func (s *MappingService) GetMapping(ctx context.Context, id uuid.UUID) (*model.MappingTemplate, error) {
	tpl, err := s.store.MappingTemplate().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrMappingNotFound(id)
		}
		return nil, err
	}
	return tpl, nil
}

type MappingFilter struct {
	EntityType model.EntityType
	// Owner sees the shared templates plus their own.
	Owner string
}

func (s *MappingService) ListMappings(ctx context.Context, filter MappingFilter) (model.MappingTemplateList, error) {
	f := store.NewMappingTemplateQueryFilter().VisibleTo(filter.Owner)
	if filter.EntityType != "" {
		f = f.ByEntityType(filter.EntityType)
	}
	return s.store.MappingTemplate().List(ctx, f)
}

// UpdateMapping replaces the editable fields. The entity type and owner are fixed.
func (s *MappingService) UpdateMapping(ctx context.Context, id uuid.UUID, in MappingInput) (*model.MappingTemplate, error) {
	current, err := s.GetMapping(ctx, id)
	if err != nil {
		return nil, err
	}
	in.EntityType = current.EntityType
	in.Owner = current.Owner
	if err := in.validate(); err != nil {
		return nil, err
	}

	tpl := in.toModel()
	tpl.ID = id
	updated, err := s.store.MappingTemplate().Update(ctx, tpl)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrMappingNotFound(id)
		}
		return nil, err
	}
	return updated, nil
}

// DeleteMapping leaves jobs alone, they keep their own mapping snapshot.
func (s *MappingService) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	if err := s.store.MappingTemplate().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return NewErrMappingNotFound(id)
		}
		return err
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
