package mappers

import (
	api "github.com/openpim/catalog-bulk/api/v1"
	"github.com/openpim/catalog-bulk/internal/service"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

// ImportOptionsFromApi defaults skipHeader to true: files carry a header row unless
// told otherwise.
func ImportOptionsFromApi(o api.ImportOptions) model.ImportOptions {
	skipHeader := true
	if o.SkipHeader != nil {
		skipHeader = *o.SkipHeader
	}
	return model.ImportOptions{
		SkipHeader:        skipHeader,
		UpdateExisting:    o.UpdateExisting,
		ValidateOnly:      o.ValidateOnly,
		Delimiter:         o.Delimiter,
		Encoding:          o.Encoding,
		BatchSize:         o.BatchSize,
		MappingTemplateID: o.MappingTemplateId,
	}
}

func ExportRequestFromApi(form api.ExportCreate, owner string) service.ExportRequest {
	format := model.ExportFormat(form.Format)
	if format == "" {
		format = model.FormatCSV
	}
	return service.ExportRequest{
		EntityType: model.EntityType(form.EntityType),
		Format:     format,
		Owner:      owner,
		Filter: model.ExportFilter{
			Status:      form.Filters.Status,
			Categories:  form.Filters.Categories,
			Brands:      form.Filters.Brands,
			PriceMin:    form.Filters.PriceMin,
			PriceMax:    form.Filters.PriceMax,
			StockMin:    form.Filters.StockMin,
			StockMax:    form.Filters.StockMax,
			CreatedFrom: form.Filters.CreatedFrom,
			CreatedTo:   form.Filters.CreatedTo,
			Search:      form.Filters.Search,
		},
		Fields: form.Fields,
		Options: model.ExportOptions{
			IncludeVariants:   form.Options.IncludeVariants,
			IncludeImages:     form.Options.IncludeImages,
			IncludeCategories: form.Options.IncludeCategories,
			IncludeAttributes: form.Options.IncludeAttributes,
			Delimiter:         form.Options.Delimiter,
			Encoding:          form.Options.Encoding,
		},
	}
}

// MappingFormApi keeps the template private to owner unless it is shared or the
// caller is anonymous.
func MappingFormApi(form api.MappingTemplateCreate, owner string) service.MappingInput {
	in := service.MappingInput{
		Name:            form.Name,
		Description:     form.Description,
		EntityType:      model.EntityType(form.EntityType),
		Mapping:         form.Mapping,
		Transformations: form.Transformations,
		DefaultValues:   form.DefaultValues,
		ValidationRules: form.ValidationRules,
		IsDefault:       form.IsDefault,
	}
	if !form.Shared && owner != "" {
		in.Owner = &owner
	}
	return in
}

func MappingUpdateFormApi(form api.MappingTemplateUpdate) service.MappingInput {
	return service.MappingInput{
		Name:            form.Name,
		Description:     form.Description,
		Mapping:         form.Mapping,
		Transformations: form.Transformations,
		DefaultValues:   form.DefaultValues,
		ValidationRules: form.ValidationRules,
		IsDefault:       form.IsDefault,
	}
}
