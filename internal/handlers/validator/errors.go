package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Messages turns validation failures into one line per field, in field order.
func Messages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "single_char":
		return fmt.Sprintf("%s must be a single character", field)
	case "entity_type":
		return fmt.Sprintf("%s: unknown entity type %q", field, fe.Value())
	case "export_format":
		return fmt.Sprintf("%s: unknown export format %q", field, fe.Value())
	case "template_format":
		return fmt.Sprintf("%s: unknown template format %q", field, fe.Value())
	case "encoding":
		return fmt.Sprintf("%s: unknown encoding %q", field, fe.Value())
	case "transformation":
		return fmt.Sprintf("%s: unknown transformation %q", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
}
