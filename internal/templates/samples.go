package templates

import (
	"fmt"

	"github.com/openpim/catalog-bulk/internal/store/model"
)

var (
	productStatuses = []string{"active", "draft", "active", "archived"}
	attributeTypes  = []string{"text", "number", "select", "boolean"}
)

// sampleRow is deterministic, row i of a template is always the same.
func sampleRow(entityType model.EntityType, i int) map[string]any {
	sku := fmt.Sprintf("SAMPLE-%03d", i)
	switch entityType {
	case model.EntityProducts:
		return map[string]any{
			"sku":              sku,
			"name":             fmt.Sprintf("Sample Product %d", i),
			"description":      fmt.Sprintf("Description of sample product %d", i),
			"price":            cents(999 + i*1000),
			"compare_at_price": cents(1499 + i*1000),
			"quantity":         i * 10,
			"weight":           0.25 * float64(i),
			"status":           productStatuses[(i-1)%len(productStatuses)],
			"type":             "simple",
			"brand":            "Sample Brand",
			"barcode":          fmt.Sprintf("4006381%06d", i),
			"categories":       "Sample Category",
			"tags":             "sample,new",
			"images":           fmt.Sprintf("https://example.com/images/sample-%d.jpg", i),
		}
	case model.EntityVariants:
		return map[string]any{
			"parent_sku": "SAMPLE-001",
			"sku":        fmt.Sprintf("SAMPLE-001-V%d", i),
			"name":       fmt.Sprintf("Sample Variant %d", i),
			"price":      cents(999 + i*100),
			"quantity":   i * 5,
			"weight":     0.25,
			"barcode":    fmt.Sprintf("4006382%06d", i),
			"options":    fmt.Sprintf("Size:%s;Color:Black", []string{"S", "M", "L", "XL"}[(i-1)%4]),
		}
	case model.EntityCategories:
		parent := ""
		if i > 1 {
			parent = "sample-category-1"
		}
		return map[string]any{
			"name":        fmt.Sprintf("Sample Category %d", i),
			"slug":        fmt.Sprintf("sample-category-%d", i),
			"description": fmt.Sprintf("Description of sample category %d", i),
			"parent":      parent,
			"position":    i,
			"is_active":   "yes",
		}
	case model.EntityAttributes:
		t := attributeTypes[(i-1)%len(attributeTypes)]
		options := ""
		if t == "select" {
			options = "Option A,Option B,Option C"
		}
		return map[string]any{
			"code":          fmt.Sprintf("sample_attribute_%d", i),
			"name":          fmt.Sprintf("Sample Attribute %d", i),
			"type":          t,
			"options":       options,
			"is_required":   "no",
			"is_filterable": "yes",
		}
	}
	return nil
}

// cents keeps sample prices at two decimals.
func cents(n int) float64 {
	return float64(n) / 100
}
