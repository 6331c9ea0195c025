package tabular

import (
	"io"

	"github.com/xuri/excelize/v2"
)

// xlsxReader walks the first sheet with the excelize row iterator.
type xlsxReader struct {
	file    *excelize.File
	rows    *excelize.Rows
	headers []string
	pending []string
	row     int
}

func newXLSXReader(r io.Reader, opts Options) (*xlsxReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, newFormatError("xlsx: %v", err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, newFormatError("xlsx: workbook has no sheets")
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, newFormatError("xlsx: %v", err)
	}

	reader := &xlsxReader{file: f, rows: rows}
	if !rows.Next() {
		return reader, nil
	}
	first, err := rows.Columns()
	if err != nil {
		_ = reader.Close()
		return nil, newFormatError("xlsx: %v", err)
	}
	if opts.NoHeader {
		reader.headers = syntheticHeaders(len(first))
		reader.pending = first
	} else {
		reader.headers = normalizeHeaders(first)
	}
	return reader, nil
}

func (x *xlsxReader) Headers() []string {
	return x.headers
}

func (x *xlsxReader) Next() (Record, error) {
	var values []string
	if x.pending != nil {
		values, x.pending = x.pending, nil
	} else {
		if x.headers == nil || !x.rows.Next() {
			if err := x.rows.Error(); err != nil {
				return Record{}, newFormatError("xlsx: %v", err)
			}
			return Record{}, io.EOF
		}
		var err error
		values, err = x.rows.Columns()
		if err != nil {
			return Record{}, newFormatError("xlsx: %v", err)
		}
	}
	x.row++
	return NewRecord(x.row, x.headers, values), nil
}

func (x *xlsxReader) Close() error {
	if x.rows != nil {
		_ = x.rows.Close()
	}
	return x.file.Close()
}
