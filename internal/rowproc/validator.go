package rowproc

import (
	"github.com/go-playground/validator/v10"

	"github.com/openpim/catalog-bulk/internal/catalog"
)

// fieldValidator is safe for concurrent use once the custom tags are registered.
var fieldValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("nonnegative", func(fl validator.FieldLevel) bool {
		_, ok := catalog.ParseNumber(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("integer", func(fl validator.FieldLevel) bool {
		_, ok := catalog.ParseInteger(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("boolish", func(fl validator.FieldLevel) bool {
		_, ok := catalog.ParseBool(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("code", func(fl validator.FieldLevel) bool {
		return catalog.IsCode(fl.Field().String())
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return catalog.IsSlug(fl.Field().String())
	})
	return v
}
