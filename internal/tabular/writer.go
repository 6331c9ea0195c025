package tabular

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Writer serializes rows in header order. Close must be called to flush.
type Writer interface {
	WriteHeader(headers []string) error
	WriteRow(values []any) error
	Close() error
}

type WriterOptions struct {
	// Delimiter and Encoding apply to CSV only.
	Delimiter rune
	Encoding  string
	// SheetName names the data sheet of a workbook, "Data" when empty.
	SheetName string
	// Sheets are appended to a workbook after the data sheet.
	Sheets []Sheet
	// Envelope wraps the JSON array in an object under this key.
	Envelope string
}

type Sheet struct {
	Name string
	Rows [][]string
}

func NewWriter(format Format, w io.Writer, opts WriterOptions) (Writer, error) {
	switch format {
	case FormatCSV:
		return newCSVWriter(w, opts)
	case FormatXLSX:
		return newXLSXWriter(w, opts), nil
	case FormatJSON:
		return newJSONWriter(w, opts), nil
	default:
		return nil, newFormatError("format %q is not supported", format)
	}
}

// cellValue flattens pointers, times and lists into values every writer can encode.
func cellValue(v any) any {
	switch x := v.(type) {
	case *float64:
		if x == nil {
			return nil
		}
		return *x
	case *int:
		if x == nil {
			return nil
		}
		return *x
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC().Format(time.RFC3339)
	case []string:
		return strings.Join(x, ",")
	default:
		return v
	}
}

func formatCell(v any) string {
	switch x := cellValue(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
