package mappers

import (
	api "github.com/openpim/catalog-bulk/api/v1"
	"github.com/openpim/catalog-bulk/internal/mapping"
	"github.com/openpim/catalog-bulk/internal/service"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

func ImportJobToApi(j model.ImportJob) api.ImportJob {
	opts := j.OptionsData()
	skipHeader := opts.SkipHeader
	job := api.ImportJob{
		Id:         j.ID,
		EntityType: string(j.EntityType),
		Status:     api.StringToJobStatus(string(j.Status)),
		FileName:   j.FileName,
		FileFormat: j.FileFormat,
		FileSize:   j.FileSize,
		Mapping:    j.MappingData(),
		Options: api.ImportOptions{
			SkipHeader:        &skipHeader,
			UpdateExisting:    opts.UpdateExisting,
			ValidateOnly:      opts.ValidateOnly,
			Delimiter:         opts.Delimiter,
			Encoding:          opts.Encoding,
			BatchSize:         opts.BatchSize,
			MappingTemplateId: opts.MappingTemplateID,
		},
		TotalRows:     j.TotalRows,
		ProcessedRows: j.ProcessedRows,
		SuccessCount:  j.SuccessCount,
		ErrorCount:    j.ErrorCount,
		SkipCount:     j.SkipCount,
		Progress:      api.Progress(j.ProcessedRows, j.TotalRows),
		Errors:        RowErrorsToApi(j.ErrorsData()),
		CreatedAt:     j.CreatedAt,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
	}
	if j.Summary != nil {
		s := j.SummaryData()
		job.Summary = &api.ImportSummary{
			Created:    s.Created,
			Updated:    s.Updated,
			Skipped:    s.Skipped,
			Failed:     s.Failed,
			DurationMs: s.DurationMs,
		}
	}
	return job
}

func ImportJobListToApi(jobs model.ImportJobList) api.ImportJobList {
	out := make(api.ImportJobList, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, ImportJobToApi(j))
	}
	return out
}

func RowErrorsToApi(errs []model.RowError) []api.RowError {
	out := make([]api.RowError, 0, len(errs))
	for _, e := range errs {
		out = append(out, api.RowError{Row: e.Row, Field: e.Field, Message: e.Message, Data: e.Data})
	}
	return out
}

func SuggestionToApi(s mapping.Suggestion) api.MappingSuggestion {
	return api.MappingSuggestion{
		Confidence:             s.Confidence,
		Mapping:                s.Mapping,
		UnmappedSource:         nonNil(s.UnmappedSource),
		UnmappedTargetRequired: nonNil(s.UnmappedTargetRequired),
	}
}

func PreviewToApi(p *service.Preview) api.ImportPreview {
	rows := p.Rows
	if rows == nil {
		rows = []map[string]string{}
	}
	return api.ImportPreview{
		Headers:          nonNil(p.Headers),
		Rows:             rows,
		SuggestedMapping: SuggestionToApi(p.SuggestedMapping),
	}
}

func ValidationReportToApi(r *service.ValidationReport) api.ValidationReport {
	return api.ValidationReport{
		Valid:       r.Valid,
		TotalRows:   r.TotalRows,
		ValidRows:   r.ValidRows,
		InvalidRows: r.InvalidRows,
		Errors:      RowErrorsToApi(r.Errors),
		Warnings:    RowErrorsToApi(r.Warnings),
	}
}

func ExportJobToApi(j model.ExportJob) api.ExportJob {
	f := j.FilterData()
	o := j.OptionsData()
	return api.ExportJob{
		Id:         j.ID,
		EntityType: string(j.EntityType),
		Format:     string(j.Format),
		Status:     api.StringToJobStatus(string(j.Status)),
		Filters: api.ExportFilter{
			Status:      f.Status,
			Categories:  f.Categories,
			Brands:      f.Brands,
			PriceMin:    f.PriceMin,
			PriceMax:    f.PriceMax,
			StockMin:    f.StockMin,
			StockMax:    f.StockMax,
			CreatedFrom: f.CreatedFrom,
			CreatedTo:   f.CreatedTo,
			Search:      f.Search,
		},
		Fields: j.FieldsData(),
		Options: api.ExportOptions{
			IncludeVariants:   o.IncludeVariants,
			IncludeImages:     o.IncludeImages,
			IncludeCategories: o.IncludeCategories,
			IncludeAttributes: o.IncludeAttributes,
			Delimiter:         o.Delimiter,
			Encoding:          o.Encoding,
		},
		TotalRecords:     j.TotalRecords,
		ProcessedRecords: j.ProcessedRecords,
		Progress:         api.Progress(j.ProcessedRecords, j.TotalRecords),
		FileName:         j.FileName,
		FileSize:         j.FileSize,
		DownloadUrl:      j.DownloadURL,
		ErrorMessage:     j.ErrorMessage,
		CreatedAt:        j.CreatedAt,
		StartedAt:        j.StartedAt,
		CompletedAt:      j.CompletedAt,
		ExpiresAt:        j.ExpiresAt,
	}
}

func ExportJobListToApi(jobs model.ExportJobList) api.ExportJobList {
	out := make(api.ExportJobList, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, ExportJobToApi(j))
	}
	return out
}

func MappingTemplateToApi(t model.MappingTemplate) api.MappingTemplate {
	return api.MappingTemplate{
		Id:              t.ID,
		Name:            t.Name,
		Description:     t.Description,
		EntityType:      string(t.EntityType),
		Mapping:         t.MappingData(),
		Transformations: t.TransformationsData(),
		DefaultValues:   t.DefaultValuesData(),
		ValidationRules: t.ValidationRulesData(),
		IsDefault:       t.IsDefault,
		UsageCount:      t.UsageCount,
		Owner:           t.Owner,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func MappingTemplateListToApi(tpls model.MappingTemplateList) api.MappingTemplateList {
	out := make(api.MappingTemplateList, 0, len(tpls))
	for _, t := range tpls {
		out = append(out, MappingTemplateToApi(t))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
