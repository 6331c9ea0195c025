package validator

import (
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/internal/tabular"
)

func entityTypeValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := model.ParseEntityType(val)
	return err == nil
}

func exportFormatValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, ok = model.ParseExportFormat(val)
	return ok
}

func templateFormatValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := tabular.ParseFormat(val)
	return err == nil
}

// singleCharValidator accepts exactly one rune, so multi-byte delimiters are fine.
func singleCharValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return utf8.RuneCountInString(val) == 1
}

func encodingValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return tabular.SupportedEncoding(val)
}

func transformationValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	switch val {
	case model.TransformTrim:
		fallthrough
	case model.TransformLowercase:
		fallthrough
	case model.TransformUppercase:
		fallthrough
	case model.TransformSlugify:
		return true
	default:
		return false
	}
}
