package rowproc

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/internal/tabular"
)

// Values holds one mapped row, keyed by target field.
type Values map[string]string

// Rules are the per-field extras of a mapping template.
type Rules struct {
	// Transformations maps a target to trim, lowercase, uppercase or slugify.
	Transformations map[string]string
	// Defaults fill empty or unmapped targets.
	Defaults map[string]string
	// Overrides maps a target to "required" or "optional".
	Overrides map[string]string
}

func RulesFromTemplate(t *model.MappingTemplate) Rules {
	if t == nil {
		return Rules{}
	}
	return Rules{
		Transformations: t.TransformationsData(),
		Defaults:        t.DefaultValuesData(),
		Overrides:       t.ValidationRulesData(),
	}
}

// Processor validates and transforms the rows of one entity type under a fixed mapping.
type Processor struct {
	entityType model.EntityType
	mapping    map[string]string
	rules      Rules
	refs       References
}

func New(entityType model.EntityType, mapping map[string]string, rules Rules, refs References) *Processor {
	return &Processor{
		entityType: entityType,
		mapping:    mapping,
		rules:      rules,
		refs:       refs,
	}
}

func (p *Processor) EntityType() model.EntityType {
	return p.entityType
}

// MapsTarget reports whether some column or default value feeds target.
func (p *Processor) MapsTarget(target string) bool {
	for _, t := range p.mapping {
		if t == target {
			return true
		}
	}
	return p.rules.Defaults[target] != ""
}

// Map projects a record onto target fields, then applies transformations and defaults.
func (p *Processor) Map(rec tabular.Record) Values {
	values := Values{}
	for _, header := range rec.Headers() {
		target, ok := p.mapping[header]
		if !ok || target == "" {
			continue
		}
		if _, done := values[target]; done {
			continue
		}
		v, _ := rec.Get(header)
		values[target] = strings.TrimSpace(v)
	}
	for target, def := range p.rules.Defaults {
		if values[target] == "" {
			values[target] = def
		}
	}
	for target, t := range p.rules.Transformations {
		if v, ok := values[target]; ok && v != "" {
			values[target] = applyTransformation(t, v)
		}
	}
	return values
}

func applyTransformation(name, v string) string {
	switch name {
	case model.TransformTrim:
		return strings.Join(strings.Fields(v), " ")
	case model.TransformLowercase:
		return strings.ToLower(v)
	case model.TransformUppercase:
		return strings.ToUpper(v)
	case model.TransformSlugify:
		return catalog.Slugify(v)
	default:
		return v
	}
}

// Validate applies the field rules, then resolves soft references. The returned
// error is reserved for lookup failures, rule violations go into the report.
func (p *Processor) Validate(ctx context.Context, values Values) (Report, error) {
	var report Report
	failed := map[string]bool{}

	for _, f := range p.checkedFields(values) {
		if issue, ok := p.checkField(f, values[f.Name]); !ok {
			report.Errors = append(report.Errors, issue)
			failed[f.Name] = true
		}
	}

	if p.refs == nil {
		return report, nil
	}
	if err := p.checkReferences(ctx, values, failed, &report); err != nil {
		return report, err
	}
	return report, nil
}

// checkedFields is the declared field set plus dynamic attribute targets, in a
// stable order so messages are reproducible.
func (p *Processor) checkedFields(values Values) []catalog.Field {
	fields := append([]catalog.Field(nil), catalog.Fields(p.entityType)...)
	var dynamic []string
	for target := range values {
		if _, ok := catalog.AttributeCode(target); ok {
			dynamic = append(dynamic, target)
		}
	}
	sort.Strings(dynamic)
	for _, target := range dynamic {
		if f, ok := catalog.Lookup(p.entityType, target); ok {
			fields = append(fields, f)
		}
	}
	return fields
}

func (p *Processor) required(f catalog.Field) bool {
	switch p.rules.Overrides[f.Name] {
	case model.RuleRequired:
		return true
	case model.RuleOptional:
		return false
	default:
		return f.Required
	}
}

func (p *Processor) checkField(f catalog.Field, v string) (Issue, bool) {
	tags := []string{"omitempty"}
	if p.required(f) {
		tags = []string{"required"}
	}
	switch f.Kind {
	case catalog.KindNumber:
		tags = append(tags, "nonnegative")
	case catalog.KindInteger:
		tags = append(tags, "integer")
	case catalog.KindBoolean:
		tags = append(tags, "boolish")
	case catalog.KindCode:
		tags = append(tags, "code")
	case catalog.KindSlug:
		tags = append(tags, "slug")
	case catalog.KindEnum:
		tags = append(tags, "oneof="+strings.Join(f.Enum, " "))
		v = strings.ToLower(v)
	}

	err := fieldValidator.Var(v, strings.Join(tags, ","))
	if err == nil {
		return Issue{}, true
	}
	tag := ""
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		tag = verrs[0].Tag()
	}
	return Issue{Field: f.Name, Message: fieldMessage(f, tag, v), Kind: ErrValidation}, false
}

func fieldMessage(f catalog.Field, tag, v string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", f.Name)
	case "nonnegative":
		return fmt.Sprintf("%s must be a non-negative number, got %q", f.Name, v)
	case "integer":
		return fmt.Sprintf("%s must be a whole number between 0 and %d, got %q", f.Name, catalog.MaxInteger, v)
	case "boolish":
		return fmt.Sprintf("%s must be yes/no, true/false or 1/0, got %q", f.Name, v)
	case "code":
		return fmt.Sprintf("%s may only contain letters, digits, '-' and '_', got %q", f.Name, v)
	case "slug":
		return fmt.Sprintf("%s must be lowercase words separated by '-', got %q", f.Name, v)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s, got %q", f.Name, strings.Join(f.Enum, ", "), v)
	default:
		return fmt.Sprintf("%s is invalid", f.Name)
	}
}

func (p *Processor) checkReferences(ctx context.Context, values Values, failed map[string]bool, report *Report) error {
	warn := func(field, format string, args ...any) {
		report.Warnings = append(report.Warnings, Issue{Field: field, Message: fmt.Sprintf(format, args...), Kind: ErrReference})
	}

	switch p.entityType {
	case model.EntityProducts:
		for _, ref := range catalog.SplitList(values["categories"]) {
			ok, err := p.refs.CategoryExists(ctx, ref)
			if err != nil {
				return err
			}
			if !ok {
				warn("categories", "category %q not found, link skipped", ref)
			}
		}
		codes := make([]string, 0)
		for target, v := range values {
			if code, ok := catalog.AttributeCode(target); ok && v != "" && !failed[target] {
				codes = append(codes, code)
			}
		}
		sort.Strings(codes)
		for _, code := range codes {
			ok, err := p.refs.AttributeExists(ctx, code)
			if err != nil {
				return err
			}
			if !ok {
				warn(catalog.AttributePrefix+code, "attribute %q not found, value skipped", code)
			}
		}

	case model.EntityVariants:
		// a variant cannot be orphaned
		parent := values["parent_sku"]
		if failed["parent_sku"] {
			return nil
		}
		if parent == "" {
			report.Errors = append(report.Errors, Issue{Field: "parent_sku", Message: "parent_sku is required", Kind: ErrReference})
			return nil
		}
		ok, err := p.refs.ProductExists(ctx, parent)
		if err != nil {
			return err
		}
		if !ok {
			report.Errors = append(report.Errors, Issue{
				Field:   "parent_sku",
				Message: fmt.Sprintf("parent product %q not found", parent),
				Kind:    ErrReference,
			})
		}

	case model.EntityCategories:
		if parent := values["parent"]; parent != "" {
			ok, err := p.refs.CategoryExists(ctx, parent)
			if err != nil {
				return err
			}
			if !ok {
				warn("parent", "parent category %q not found, created at the root", parent)
			}
		}
	}
	return nil
}
