package validator

import "github.com/go-playground/validator/v10"

func registerFn(tag string, fn func(fl validator.FieldLevel) bool) func(v *validator.Validate) {
	return func(v *validator.Validate) {
		_ = v.RegisterValidation(tag, fn)
	}
}

func NewImportValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("single_char", singleCharValidator),
		},
		{
			Rule: registerFn("encoding", encodingValidator),
		},
	}
}

func NewExportValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("entity_type", entityTypeValidator),
		},
		{
			Rule: registerFn("export_format", exportFormatValidator),
		},
		{
			Rule: registerFn("single_char", singleCharValidator),
		},
		{
			Rule: registerFn("encoding", encodingValidator),
		},
	}
}

func NewTemplateValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("entity_type", entityTypeValidator),
		},
		{
			Rule: registerFn("template_format", templateFormatValidator),
		},
	}
}

func NewMappingValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("entity_type", entityTypeValidator),
		},
		{
			Rule: registerFn("transformation", transformationValidator),
		},
	}
}
