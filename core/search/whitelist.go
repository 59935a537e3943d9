package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
)

// FilterKind describes how a field is compared when it appears in a filter.
type FilterKind int

const (
	KindExact FilterKind = iota + 1
	KindContains
	KindEnum
	KindUUID
	KindDateRange
	KindNumberRange
)

func (k FilterKind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindContains:
		return "contains"
	case KindEnum:
		return "enum"
	case KindUUID:
		return "uuid"
	case KindDateRange:
		return "date_range"
	case KindNumberRange:
		return "number_range"
	}
	return "unknown"
}

// FieldSpec declares what a request may do with one field of an entity.
type FieldSpec struct {
	Name       string
	Column     string
	Kind       FilterKind
	Filterable bool
	Sortable   bool
	Searchable bool
	Values     []string
}

func newField(name string, kind FilterKind) FieldSpec {
	return FieldSpec{
		Name:       name,
		Column:     strcase.ToSnake(name),
		Kind:       kind,
		Filterable: true,
	}
}

func Exact(name string) FieldSpec    { return newField(name, KindExact) }
func Contains(name string) FieldSpec { return newField(name, KindContains) }
func UUID(name string) FieldSpec     { return newField(name, KindUUID) }

func DateRange(name string) FieldSpec   { return newField(name, KindDateRange) }
func NumberRange(name string) FieldSpec { return newField(name, KindNumberRange) }

// Enum declares a multi-select field restricted to values.
func Enum(name string, values ...string) FieldSpec {
	f := newField(name, KindEnum)
	f.Values = append([]string(nil), values...)
	return f
}

// SortOnly declares a field that can be used for ordering but never filtered.
func SortOnly(name string) FieldSpec {
	f := newField(name, KindExact)
	f.Filterable = false
	f.Sortable = true
	return f
}

// AsSortable marks the field as a legal sort key.
func (f FieldSpec) AsSortable() FieldSpec {
	f.Sortable = true
	return f
}

// AsSearchable includes the field in free-text matching.
func (f FieldSpec) AsSearchable() FieldSpec {
	f.Searchable = true
	return f
}

// Whitelist is the closed set of fields an entity exposes to search requests.
// It is never mutated after NewWhitelist returns.
type Whitelist struct {
	entity string
	fields []FieldSpec
	index  map[string]int
}

func NewWhitelist(entity string, specs ...FieldSpec) (*Whitelist, error) {
	if strings.TrimSpace(entity) == "" {
		return nil, errors.New("whitelist entity name is empty")
	}

	wl := &Whitelist{
		entity: entity,
		fields: make([]FieldSpec, 0, len(specs)),
		index:  make(map[string]int, len(specs)),
	}
	for _, spec := range specs {
		if strings.TrimSpace(spec.Name) == "" {
			return nil, fmt.Errorf("whitelist %q: field name is empty", entity)
		}
		if _, ok := wl.index[spec.Name]; ok {
			return nil, fmt.Errorf("whitelist %q: duplicate field %q", entity, spec.Name)
		}
		if spec.Kind == KindEnum && len(spec.Values) == 0 {
			return nil, fmt.Errorf("whitelist %q: enum field %q has no values", entity, spec.Name)
		}
		for _, v := range spec.Values {
			if v == "" || strings.ContainsAny(v, " \t\n"+listSeparator) {
				return nil, fmt.Errorf("whitelist %q: enum field %q has invalid value %q", entity, spec.Name, v)
			}
		}
		if spec.Column == "" {
			spec.Column = strcase.ToSnake(spec.Name)
		}
		spec.Values = append([]string(nil), spec.Values...)

		wl.index[spec.Name] = len(wl.fields)
		wl.fields = append(wl.fields, spec)
	}

	return wl, nil
}

// MustWhitelist is like NewWhitelist but panics on an invalid declaration.
// Intended for package-level entity declarations.
func MustWhitelist(entity string, specs ...FieldSpec) *Whitelist {
	wl, err := NewWhitelist(entity, specs...)
	if err != nil {
		panic(err)
	}
	return wl
}

// Lookup returns the declaration of name or an InvalidFilterFieldError.
func (w *Whitelist) Lookup(name string) (FieldSpec, error) {
	i, ok := w.index[name]
	if !ok {
		return FieldSpec{}, InvalidFilterFieldError{Entity: w.entity, Field: name}
	}
	return w.fields[i], nil
}

// Fields returns the declarations in declaration order.
func (w *Whitelist) Fields() []FieldSpec {
	out := make([]FieldSpec, len(w.fields))
	copy(out, w.fields)
	return out
}

func (w *Whitelist) searchableColumns() []string {
	var cols []string
	for _, f := range w.fields {
		if f.Searchable {
			cols = append(cols, f.Column)
		}
	}
	return cols
}
