package templates

import (
	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

var intro = map[model.EntityType]string{
	model.EntityProducts:   "One row per product. Rows are matched on sku: existing products are only changed when the import runs with updateExisting.",
	model.EntityVariants:   "One row per variant. parent_sku must name a product that already exists, otherwise the row is rejected.",
	model.EntityCategories: "One row per category. The slug is derived from the name when left empty. Parents are referenced by slug or name and must appear before their children.",
	model.EntityAttributes: "One row per attribute. Codes may only contain letters, digits, '-' and '_'.",
}

var guidance = map[string]string{
	"sku":              "Unique stock keeping unit. Letters, digits, '-' and '_'.",
	"parent_sku":       "SKU of the product this variant belongs to.",
	"name":             "Display name.",
	"description":      "Free text.",
	"price":            "Non-negative number, use '.' as decimal separator.",
	"compare_at_price": "Optional list price, non-negative number.",
	"quantity":         "Stock on hand, non-negative whole number.",
	"weight":           "Optional shipping weight, non-negative number.",
	"status":           "One of active, draft, archived. Defaults to draft.",
	"type":             "Product type: simple, variable, bundle or digital. For attributes: text, textarea, number, boolean, select, multiselect or date.",
	"brand":            "Brand or manufacturer name.",
	"barcode":          "EAN, UPC or GTIN.",
	"categories":       "Comma separated category names or slugs. Unknown categories are skipped with a warning.",
	"tags":             "Comma separated list.",
	"images":           "Comma separated image URLs, the first one is the primary image.",
	"options":          "Variants: Name:Value pairs separated by ';', e.g. Size:M;Color:Red. Attributes: comma separated allowed values.",
	"slug":             "Lowercase words separated by '-'. Unique.",
	"parent":           "Slug or name of the parent category. Leave empty for a root category.",
	"position":         "Sort order among siblings, non-negative whole number.",
	"is_active":        "yes/no, true/false or 1/0. Defaults to yes.",
	"code":             "Unique attribute code. Products reference it with an attributes.<code> column.",
	"is_required":      "yes/no, true/false or 1/0.",
	"is_filterable":    "yes/no, true/false or 1/0.",
}

func instructions(entityType model.EntityType) [][]string {
	rows := [][]string{
		{intro[entityType]},
		{"Field", "Required", "Description"},
	}
	required := map[string]bool{}
	for _, f := range catalog.RequiredFields(entityType) {
		required[f] = true
	}
	for _, h := range catalog.Headers(entityType) {
		req := "no"
		if required[h] {
			req = "yes"
		}
		rows = append(rows, []string{h, req, guidance[h]})
	}
	if entityType == model.EntityProducts {
		rows = append(rows, []string{"attributes.<code>", "no", "Optional extra columns, one per attribute code, holding the attribute value."})
	}
	return rows
}
