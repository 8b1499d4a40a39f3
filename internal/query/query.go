// Package query turns product listing parameters into a storage-neutral
// filter, sort order and pagination window.
package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"catalog/internal/errs"
	"catalog/internal/models"
)

const (
	DefaultSort  = "-" + models.FieldUpdatedAt
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params are the raw listing query parameters. Empty values count as absent.
type Params struct {
	Q        string `query:"q"`
	Tag      string `query:"tag"`
	MinPrice string `query:"minPrice"`
	MaxPrice string `query:"maxPrice"`
	Sort     string `query:"sort"`
	Page     string `query:"page"`
	Limit    string `query:"limit"`
}

// Filter is the predicate a product must satisfy to be listed.
type Filter struct {
	Text     string
	Tag      string
	MinPrice *float64
	MaxPrice *float64
}

// Terms splits the full-text search into lower-cased terms.
func (f Filter) Terms() []string {
	return strings.Fields(strings.ToLower(f.Text))
}

// Matches evaluates the filter in memory. A text search matches when any term
// is one of the words of an indexed text field.
func (f Filter) Matches(p models.Product) bool {
	if terms := f.Terms(); len(terms) > 0 && !matchesAnyTerm(p.Name, terms) {
		return false
	}
	if f.Tag != "" && !containsTag(p.Tags, f.Tag) {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	return true
}

// Sort is a single-key sort order. Ties are broken by id in the same direction.
type Sort struct {
	Field string
	Desc  bool
}

// Compare orders a before b (negative), after b (positive) or neither.
func (s Sort) Compare(a, b models.Product) int {
	c := compareField(s.Field, a, b)
	if c == 0 {
		c = strings.Compare(a.ID, b.ID)
	}
	if s.Desc {
		return -c
	}
	return c
}

func compareField(field string, a, b models.Product) int {
	switch field {
	case models.FieldName:
		return strings.Compare(a.Name, b.Name)
	case models.FieldPrice:
		return cmpFloat(a.Price, b.Price)
	case models.FieldStock:
		return cmpFloat(float64(a.Stock), float64(b.Stock))
	case models.FieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case models.FieldUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (s Sort) String() string {
	if s.Desc {
		return "-" + s.Field
	}
	return s.Field
}

// Spec is a fully validated listing query.
type Spec struct {
	Filter Filter
	Sort   Sort
	Page   int
	Limit  int
	Skip   int
}

// Build validates params and applies defaults. Every invalid parameter is
// reported in a single validation error.
func Build(params Params) (Spec, error) {
	var fields []errs.FieldError
	invalid := func(field, msg string) {
		fields = append(fields, errs.FieldError{Field: field, Error: msg})
	}

	spec := Spec{
		Filter: Filter{
			Text: strings.TrimSpace(params.Q),
			Tag:  params.Tag,
		},
	}

	var err error
	if spec.Filter.MinPrice, err = parsePrice(params.MinPrice); err != nil {
		invalid("minPrice", err.Error())
	}
	if spec.Filter.MaxPrice, err = parsePrice(params.MaxPrice); err != nil {
		invalid("maxPrice", err.Error())
	}
	if lo, hi := spec.Filter.MinPrice, spec.Filter.MaxPrice; lo != nil && hi != nil && *lo > *hi {
		invalid("minPrice", "must not exceed maxPrice")
	}

	if spec.Sort, err = parseSort(params.Sort); err != nil {
		invalid("sort", err.Error())
	}

	if spec.Page, err = parsePositive(params.Page, DefaultPage); err != nil {
		invalid("page", err.Error())
	}
	if spec.Limit, err = parsePositive(params.Limit, DefaultLimit); err != nil {
		invalid("limit", err.Error())
	}

	if len(fields) > 0 {
		return Spec{}, errs.NewValidationError("Invalid query: "+errs.JoinFields(fields), fields)
	}

	if spec.Limit > MaxLimit {
		spec.Limit = MaxLimit
	}
	if spec.Page-1 > math.MaxInt32/spec.Limit {
		fields = append(fields, errs.FieldError{Field: "page", Error: "is too large"})
		return Spec{}, errs.NewValidationError("Invalid query: "+errs.JoinFields(fields), fields)
	}
	spec.Skip = (spec.Page - 1) * spec.Limit
	return spec, nil
}

func parsePrice(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("must be a number")
	}
	return &v, nil
}

func parseSort(raw string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultSort
	}
	s := Sort{Field: raw}
	if strings.HasPrefix(raw, "-") {
		s = Sort{Field: raw[1:], Desc: true}
	}
	for _, f := range models.SortableFields {
		if s.Field == f {
			return s, nil
		}
	}
	return Sort{}, fmt.Errorf("must be one of %s, optionally prefixed with '-'", strings.Join(models.SortableFields, ", "))
}

func parsePositive(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return v, nil
}

func matchesAnyTerm(text string, terms []string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r == '-' || r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || r > 127)
	})
	for _, w := range words {
		for _, t := range terms {
			if w == t {
				return true
			}
		}
	}
	return false
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
