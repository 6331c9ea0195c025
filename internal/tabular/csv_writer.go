package tabular

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/transform"
)

type csvWriter struct {
	w       *csv.Writer
	encoder io.WriteCloser
	headers int
}

func newCSVWriter(w io.Writer, opts WriterOptions) (*csvWriter, error) {
	enc, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	encoder := transform.NewWriter(w, enc.NewEncoder())
	cw := csv.NewWriter(encoder)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}
	return &csvWriter{w: cw, encoder: encoder}, nil
}

func (c *csvWriter) WriteHeader(headers []string) error {
	c.headers = len(headers)
	return c.w.Write(headers)
}

func (c *csvWriter) WriteRow(values []any) error {
	record := make([]string, max(c.headers, len(values)))
	for i, v := range values {
		record[i] = formatCell(v)
	}
	return c.w.Write(record)
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return err
	}
	return c.encoder.Close()
}
