package catalog

import (
	"strings"

	"github.com/openpim/catalog-bulk/internal/store/model"
)

type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindInteger
	KindBoolean
	KindEnum
	// KindCode holds natural keys restricted to letters, digits, '-' and '_'.
	KindCode
	KindSlug
	// KindList is a comma separated list.
	KindList
	// KindOptions is a "name:value;name:value" list.
	KindOptions
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindEnum:
		return "enum"
	case KindCode:
		return "code"
	case KindSlug:
		return "slug"
	case KindList:
		return "list"
	case KindOptions:
		return "options"
	default:
		return "string"
	}
}

// AttributePrefix marks dynamic product targets such as "attributes.color".
const AttributePrefix = "attributes."

type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Synonyms are already normalized: lowercase letters and digits only.
	Synonyms []string
	Enum     []string
}

var (
	ProductStatuses = []string{"active", "draft", "archived"}
	ProductTypes    = []string{"simple", "variable", "bundle", "digital"}
	AttributeTypes  = []string{"text", "textarea", "number", "boolean", "select", "multiselect", "date"}
)

// Fields are listed in matching order: the first field with a synonym contained in
// the header (or the other way round) wins. compare_at_price precedes price and brand
// precedes name for that reason, and no synonym may contain another field's name.
var productFields = []Field{
	{Name: "compare_at_price", Kind: KindNumber, Synonyms: []string{"compareat", "msrp", "rrp"}},
	{Name: "brand", Kind: KindString, Synonyms: []string{"brand", "manufacturer", "vendor"}},
	{Name: "categories", Kind: KindList, Synonyms: []string{"category", "categories", "collection"}},
	{Name: "name", Kind: KindString, Required: true, Synonyms: []string{"name", "productname", "title", "producttitle", "itemname"}},
	{Name: "sku", Kind: KindCode, Required: true, Synonyms: []string{"sku", "skucode", "productsku", "itemsku", "partnumber", "articlenumber"}},
	{Name: "description", Kind: KindString, Synonyms: []string{"description", "desc", "productdescription", "details", "longdescription"}},
	{Name: "price", Kind: KindNumber, Synonyms: []string{"price", "unitprice", "saleprice", "sellingprice", "retailprice"}},
	{Name: "quantity", Kind: KindInteger, Synonyms: []string{"quantity", "qty", "stock", "inventory", "stockquantity", "onhand"}},
	{Name: "weight", Kind: KindNumber, Synonyms: []string{"weight", "shippingweight", "mass"}},
	{Name: "status", Kind: KindEnum, Enum: ProductStatuses, Synonyms: []string{"status", "state", "productstatus"}},
	{Name: "type", Kind: KindEnum, Enum: ProductTypes, Synonyms: []string{"type", "producttype", "kind"}},
	{Name: "barcode", Kind: KindString, Synonyms: []string{"barcode", "ean", "upc", "gtin"}},
	{Name: "tags", Kind: KindList, Synonyms: []string{"tags", "tag", "keywords", "labels"}},
	{Name: "images", Kind: KindList, Synonyms: []string{"images", "image", "imageurl", "photos", "pictures"}},
}

var variantFields = []Field{
	// never a synonym containing "sku", a plain SKU column must map to sku
	{Name: "parent_sku", Kind: KindCode, Synonyms: []string{"parent", "parentproduct", "parentref", "productref"}},
	{Name: "sku", Kind: KindCode, Required: true, Synonyms: []string{"sku", "variantsku", "skucode", "itemsku"}},
	{Name: "name", Kind: KindString, Synonyms: []string{"name", "variantname", "title"}},
	{Name: "compare_at_price", Kind: KindNumber, Synonyms: []string{"compareat", "msrp", "rrp"}},
	{Name: "price", Kind: KindNumber, Synonyms: []string{"price", "unitprice", "variantprice"}},
	{Name: "quantity", Kind: KindInteger, Synonyms: []string{"quantity", "qty", "stock", "inventory", "onhand"}},
	{Name: "weight", Kind: KindNumber, Synonyms: []string{"weight", "mass"}},
	{Name: "barcode", Kind: KindString, Synonyms: []string{"barcode", "ean", "upc", "gtin"}},
	{Name: "options", Kind: KindOptions, Synonyms: []string{"options", "option", "attributes", "variantoptions"}},
}

var categoryFields = []Field{
	{Name: "parent", Kind: KindString, Synonyms: []string{"parent", "parentcat"}},
	{Name: "name", Kind: KindString, Required: true, Synonyms: []string{"name", "categoryname", "title", "category"}},
	{Name: "slug", Kind: KindSlug, Synonyms: []string{"slug", "handle", "urlkey"}},
	{Name: "description", Kind: KindString, Synonyms: []string{"description", "desc"}},
	{Name: "position", Kind: KindInteger, Synonyms: []string{"position", "sortorder", "order"}},
	{Name: "is_active", Kind: KindBoolean, Synonyms: []string{"isactive", "active", "enabled", "visible"}},
}

var attributeFields = []Field{
	{Name: "code", Kind: KindCode, Required: true, Synonyms: []string{"code", "attributecode", "key", "identifier"}},
	{Name: "name", Kind: KindString, Required: true, Synonyms: []string{"name", "attributename", "label", "title"}},
	{Name: "type", Kind: KindEnum, Enum: AttributeTypes, Synonyms: []string{"type", "attributetype", "datatype", "inputtype"}},
	{Name: "options", Kind: KindList, Synonyms: []string{"options", "values", "choices", "allowedvalues"}},
	{Name: "is_required", Kind: KindBoolean, Synonyms: []string{"isrequired", "required", "mandatory"}},
	{Name: "is_filterable", Kind: KindBoolean, Synonyms: []string{"isfilterable", "filterable", "facet"}},
}

// Fields returns the target fields of t in matching order.
func Fields(t model.EntityType) []Field {
	switch t {
	case model.EntityProducts:
		return productFields
	case model.EntityVariants:
		return variantFields
	case model.EntityCategories:
		return categoryFields
	case model.EntityAttributes:
		return attributeFields
	default:
		return nil
	}
}

func Lookup(t model.EntityType, name string) (Field, bool) {
	for _, f := range Fields(t) {
		if f.Name == name {
			return f, true
		}
	}
	if t == model.EntityProducts {
		if code, ok := AttributeCode(name); ok && IsCode(code) {
			return Field{Name: name, Kind: KindString}, true
		}
	}
	return Field{}, false
}

func IsKnownField(t model.EntityType, name string) bool {
	_, ok := Lookup(t, name)
	return ok
}

// AttributeCode extracts <code> from a dynamic "attributes.<code>" target.
func AttributeCode(target string) (string, bool) {
	if !strings.HasPrefix(target, AttributePrefix) {
		return "", false
	}
	code := strings.TrimPrefix(target, AttributePrefix)
	return code, code != ""
}

func RequiredFields(t model.EntityType) []string {
	var names []string
	for _, f := range Fields(t) {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Headers is the canonical column order used by templates and exports.
func Headers(t model.EntityType) []string {
	switch t {
	case model.EntityProducts:
		return []string{"sku", "name", "description", "price", "compare_at_price", "quantity", "weight",
			"status", "type", "brand", "barcode", "categories", "tags", "images"}
	case model.EntityVariants:
		return []string{"parent_sku", "sku", "name", "price", "compare_at_price", "quantity", "weight", "barcode", "options"}
	case model.EntityCategories:
		return []string{"name", "slug", "description", "parent", "position", "is_active"}
	case model.EntityAttributes:
		return []string{"code", "name", "type", "options", "is_required", "is_filterable"}
	default:
		return nil
	}
}
