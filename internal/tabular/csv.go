package tabular

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type csvReader struct {
	r       *csv.Reader
	headers []string
	pending []string
	row     int
}

func newCSVReader(r io.Reader, opts Options) (*csvReader, error) {
	dec, err := decoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &csvReader{r: cr}, nil
	}
	if err != nil {
		return nil, newFormatError("csv: %v", err)
	}

	reader := &csvReader{r: cr}
	if opts.NoHeader {
		reader.headers = syntheticHeaders(len(first))
		reader.pending = first
	} else {
		reader.headers = normalizeHeaders(first)
	}
	return reader, nil
}

func (c *csvReader) Headers() []string {
	return c.headers
}

func (c *csvReader) Next() (Record, error) {
	var values []string
	if c.pending != nil {
		values, c.pending = c.pending, nil
	} else {
		var err error
		values, err = c.r.Read()
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		if err != nil {
			return Record{}, newFormatError("csv: %v", err)
		}
	}
	c.row++
	return NewRecord(c.row, c.headers, values), nil
}

func (c *csvReader) Close() error {
	return nil
}

// decoding returns a BOM-aware decoder for a WHATWG encoding label.
func decoding(label string) (transform.Transformer, error) {
	enc, err := lookupEncoding(label)
	if err != nil {
		return nil, err
	}
	return unicode.BOMOverride(enc.NewDecoder()), nil
}

func lookupEncoding(label string) (encoding.Encoding, error) {
	label = strings.TrimSpace(strings.ToLower(label))
	if label == "" || label == "utf-8" || label == "utf8" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, newFormatError("unknown encoding %q", label)
	}
	return enc, nil
}

// SupportedEncoding reports whether label names an encoding the CSV codec can handle.
func SupportedEncoding(label string) bool {
	_, err := lookupEncoding(label)
	return err == nil
}
