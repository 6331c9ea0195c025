package tabular

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Reader streams records. Next returns io.EOF after the last record.
type Reader interface {
	Headers() []string
	Next() (Record, error)
	Close() error
}

type Options struct {
	// NoHeader treats the first row as data and names columns column_1..N.
	NoHeader bool
	// Delimiter applies to CSV only, ',' when zero.
	Delimiter rune
	// Encoding is a WHATWG label such as "utf-8", "latin1" or "utf-16le".
	Encoding string
}

// Open picks a reader for the detected format and reads the header row.
func Open(r io.Reader, name string, hint Format, opts Options) (Reader, error) {
	format, err := DetectFormat(name, hint)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatCSV:
		return newCSVReader(r, opts)
	case FormatXLSX:
		return newXLSXReader(r, opts)
	case FormatJSON:
		return newJSONReader(r)
	default:
		return nil, newFormatError("format %q is not supported", format)
	}
}

// Preview reads at most n records.
func Preview(r Reader, n int) ([]Record, error) {
	records := make([]Record, 0, n)
	for len(records) < n {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// CountRows consumes r and returns the number of records.
func CountRows(r Reader) (int, error) {
	count := 0
	for {
		_, err := r.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		count++
	}
}

// normalizeHeaders trims names and fills blanks with column_N.
func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = syntheticHeader(i)
		}
		headers[i] = h
	}
	return headers
}

func syntheticHeaders(n int) []string {
	headers := make([]string, n)
	for i := range headers {
		headers[i] = syntheticHeader(i)
	}
	return headers
}

func syntheticHeader(i int) string {
	return fmt.Sprintf("column_%d", i+1)
}
