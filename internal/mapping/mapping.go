package mapping

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

// SimilarityThreshold is the minimum fuzzy score, exclusive.
const SimilarityThreshold = 0.7

// Suggestion is the outcome of SuggestMapping.
type Suggestion struct {
	Confidence float64           `json:"confidence"`
	Mapping    map[string]string `json:"mapping"`
	// UnmappedSource lists headers without a target, in input order.
	UnmappedSource []string `json:"unmappedSource"`
	// UnmappedTargetRequired lists required targets nothing mapped to.
	UnmappedTargetRequired []string `json:"unmappedTargetRequired"`
}

type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Normalize lowercases s and drops everything but letters and digits.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Similarity is (len(longer) - distance) / len(longer) over runes.
func Similarity(a, b string) float64 {
	longer := max(len([]rune(a)), len([]rune(b)))
	if longer == 0 {
		return 1
	}
	return float64(longer-levenshtein.ComputeDistance(a, b)) / float64(longer)
}

// SuggestMapping is deterministic: the same headers always yield the same result.
// A header whose best target was already taken by an earlier header stays unmapped.
func SuggestMapping(headers []string, entityType model.EntityType) Suggestion {
	s := Suggestion{
		Mapping:                map[string]string{},
		UnmappedSource:         []string{},
		UnmappedTargetRequired: []string{},
	}
	fields := catalog.Fields(entityType)
	taken := map[string]bool{}

	for _, header := range headers {
		target, ok := matchHeader(header, entityType, fields)
		if !ok || taken[target] {
			s.UnmappedSource = append(s.UnmappedSource, header)
			continue
		}
		taken[target] = true
		s.Mapping[header] = target
	}

	if len(headers) > 0 {
		s.Confidence = float64(len(s.Mapping)) / float64(len(headers))
	}
	for _, required := range catalog.RequiredFields(entityType) {
		if !taken[required] {
			s.UnmappedTargetRequired = append(s.UnmappedTargetRequired, required)
		}
	}
	return s
}

func matchHeader(header string, entityType model.EntityType, fields []catalog.Field) (string, bool) {
	if entityType == model.EntityProducts {
		if code, ok := catalog.AttributeCode(strings.TrimSpace(header)); ok && catalog.IsCode(code) {
			return catalog.AttributePrefix + code, true
		}
	}

	normalized := Normalize(header)
	if normalized == "" {
		return "", false
	}

	for _, f := range fields {
		for _, syn := range f.Synonyms {
			if strings.Contains(normalized, syn) || strings.Contains(syn, normalized) {
				return f.Name, true
			}
		}
	}

	best, bestScore := "", 0.0
	for _, f := range fields {
		for _, syn := range f.Synonyms {
			// strictly greater keeps the first declared field on ties
			if score := Similarity(normalized, syn); score > bestScore {
				best, bestScore = f.Name, score
			}
		}
	}
	if bestScore > SimilarityThreshold {
		return best, true
	}
	return "", false
}

// Validate checks a source -> target mapping against the fields of entityType.
func Validate(mapping map[string]string, entityType model.EntityType) Result {
	var errs []string

	sources := make([]string, 0, len(mapping))
	for source := range mapping {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	seen := map[string]string{}
	for _, source := range sources {
		target := mapping[source]
		if target == "" {
			continue
		}
		if !catalog.IsKnownField(entityType, target) {
			errs = append(errs, fmt.Sprintf("column %q maps to unknown field %q", source, target))
			continue
		}
		if first, dup := seen[target]; dup {
			errs = append(errs, fmt.Sprintf("field %q is mapped by both %q and %q", target, first, source))
			continue
		}
		seen[target] = source
	}

	for _, required := range catalog.RequiredFields(entityType) {
		if _, ok := seen[required]; !ok {
			errs = append(errs, fmt.Sprintf("required field %q is not mapped", required))
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}
