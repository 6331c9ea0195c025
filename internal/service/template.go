package service

import (
	"bytes"
	"context"
	"io"

	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/internal/tabular"
	"github.com/openpim/catalog-bulk/internal/templates"
)

type TemplateService struct{}

func NewTemplateService() *TemplateService {
	return &TemplateService{}
}

// DownloadTemplate renders the template in memory, templates are a header plus at
// most a hundred sample rows.
func (s *TemplateService) DownloadTemplate(ctx context.Context, entityType model.EntityType, format tabular.Format, includeSampleData bool, sampleRows int) (*Download, error) {
	if _, err := model.ParseEntityType(string(entityType)); err != nil {
		return nil, NewErrInvalidRequest("%s", err)
	}
	if format == "" {
		format = tabular.FormatCSV
	}
	format, err := tabular.ParseFormat(string(format))
	if err != nil {
		return nil, NewErrFileFormat(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := templates.Generate(&buf, entityType, format, templates.Options{IncludeSampleData: includeSampleData, SampleRows: sampleRows}); err != nil {
		return nil, err
	}
	return &Download{
		Name:        templates.FileName(entityType, format),
		ContentType: format.ContentType(),
		Size:        int64(buf.Len()),
		Body:        io.NopCloser(&buf),
	}, nil
}
