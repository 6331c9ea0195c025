package tabular

import (
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	minColumnWidth = 8
	maxColumnWidth = 60
)

type xlsxWriter struct {
	out    io.Writer
	file   *excelize.File
	sheet  string
	extra  []Sheet
	row    int
	widths []int
	err    error
}

func newXLSXWriter(w io.Writer, opts WriterOptions) *xlsxWriter {
	f := excelize.NewFile()
	sheet := opts.SheetName
	if sheet == "" {
		sheet = "Data"
	}
	x := &xlsxWriter{out: w, file: f, sheet: sheet, extra: opts.Sheets}
	x.err = f.SetSheetName("Sheet1", sheet)
	return x
}

func (x *xlsxWriter) WriteHeader(headers []string) error {
	if x.err != nil {
		return x.err
	}
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := x.writeRow(values); err != nil {
		return err
	}
	if len(headers) == 0 {
		return nil
	}

	style, err := x.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#4472C4"}},
	})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := x.file.SetCellStyle(x.sheet, "A1", last, style); err != nil {
		return err
	}
	return x.file.SetPanes(x.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (x *xlsxWriter) WriteRow(values []any) error {
	if x.err != nil {
		return x.err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		if cells[i] = cellValue(v); cells[i] == nil {
			cells[i] = ""
		}
	}
	return x.writeRow(cells)
}

func (x *xlsxWriter) writeRow(values []any) error {
	x.row++
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return err
	}
	for i, v := range values {
		if i >= len(x.widths) {
			x.widths = append(x.widths, 0)
		}
		x.widths[i] = max(x.widths[i], utf8.RuneCountInString(formatCell(v)))
	}
	return x.file.SetSheetRow(x.sheet, cell, &values)
}

func (x *xlsxWriter) Close() error {
	defer x.file.Close()
	if x.err != nil {
		return x.err
	}
	if err := autoSize(x.file, x.sheet, x.widths); err != nil {
		return err
	}
	for _, s := range x.extra {
		if err := writeSheet(x.file, s); err != nil {
			return err
		}
	}
	return x.file.Write(x.out)
}

func writeSheet(f *excelize.File, s Sheet) error {
	if _, err := f.NewSheet(s.Name); err != nil {
		return err
	}
	var widths []int
	for i, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
			if j >= len(widths) {
				widths = append(widths, 0)
			}
			widths[j] = max(widths[j], utf8.RuneCountInString(v))
		}
		if err := f.SetSheetRow(s.Name, cell, &values); err != nil {
			return err
		}
	}
	return autoSize(f, s.Name, widths)
}

func autoSize(f *excelize.File, sheet string, widths []int) error {
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(min(max(w+2, minColumnWidth), maxColumnWidth))
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}
