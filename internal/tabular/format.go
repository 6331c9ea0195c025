package tabular

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// ErrFileFormat reports an unsupported extension or unreadable content. It is fatal
// for the job that owns the file.
var ErrFileFormat = errors.New("unsupported or corrupt file")

func newFormatError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFileFormat, fmt.Sprintf(format, args...))
}

// DetectFormat prefers an explicit hint over the file extension.
func DetectFormat(name string, hint Format) (Format, error) {
	if hint != "" {
		return ParseFormat(string(hint))
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return "", newFormatError("file %q has no extension", name)
	}
	return ParseFormat(ext)
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "csv", "text/csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "json", "application/json":
		return FormatJSON, nil
	default:
		return "", newFormatError("format %q is not supported", s)
	}
}

func (f Format) Extension() string {
	return "." + string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/csv"
	}
}
