package templates

import (
	"fmt"
	"io"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/internal/tabular"
)

const (
	DefaultSampleRows = 5
	MaxSampleRows     = 100

	instructionsSheet = "Instructions"
)

type Options struct {
	IncludeSampleData bool
	SampleRows        int
}

func FileName(entityType model.EntityType, format tabular.Format) string {
	return fmt.Sprintf("%s_template%s", entityType, format.Extension())
}

// Generate writes the canonical header row of the entity type, optionally followed by
// generated sample rows. Workbooks get an extra Instructions sheet.
func Generate(w io.Writer, entityType model.EntityType, format tabular.Format, opts Options) error {
	headers := catalog.Headers(entityType)
	if headers == nil {
		return fmt.Errorf("no template for entity type %q", entityType)
	}

	writerOpts := tabular.WriterOptions{}
	if format == tabular.FormatXLSX {
		writerOpts.SheetName = string(entityType)
		writerOpts.Sheets = []tabular.Sheet{{Name: instructionsSheet, Rows: instructions(entityType)}}
	}
	tw, err := tabular.NewWriter(format, w, writerOpts)
	if err != nil {
		return err
	}
	if err := tw.WriteHeader(headers); err != nil {
		return err
	}

	if opts.IncludeSampleData {
		n := opts.SampleRows
		if n <= 0 {
			n = DefaultSampleRows
		}
		n = min(n, MaxSampleRows)
		for i := 1; i <= n; i++ {
			sample := sampleRow(entityType, i)
			row := make([]any, len(headers))
			for j, h := range headers {
				row[j] = sample[h]
			}
			if err := tw.WriteRow(row); err != nil {
				return err
			}
		}
	}
	return tw.Close()
}
