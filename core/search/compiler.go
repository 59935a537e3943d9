package search

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-module/carbon/v2"
	"github.com/google/uuid"
	"github.com/goto/sift/core/validator"
)

// Compiler turns the filters of a request into a PredicateTree, enforcing the
// whitelist of one entity.
type Compiler struct {
	wl            *Whitelist
	caseSensitive bool
}

type CompilerOption func(*Compiler)

// CompileWithCaseSensitive controls whether contains filters and free-text
// terms match case-sensitively. The default is case-insensitive.
func CompileWithCaseSensitive(enabled bool) CompilerOption {
	return func(c *Compiler) {
		c.caseSensitive = enabled
	}
}

func NewCompiler(wl *Whitelist, opts ...CompilerOption) *Compiler {
	c := &Compiler{wl: wl}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile validates every filter before producing any predicate, so an error
// means nothing else about the request was looked at. Predicates come out in
// whitelist declaration order.
func (c *Compiler) Compile(req SearchRequest) (PredicateTree, error) {
	if c.wl == nil {
		return PredicateTree{}, ErrNilWhitelist
	}
	if err := c.checkFields(req.Filters); err != nil {
		return PredicateTree{}, err
	}

	var tree PredicateTree
	for _, spec := range c.wl.fields {
		val, ok := req.Filters[spec.Name]
		if !ok || val == nil || !spec.Filterable {
			continue
		}

		preds, err := c.compileField(spec, val)
		if err != nil {
			return PredicateTree{}, err
		}
		tree.Predicates = append(tree.Predicates, preds...)
	}

	if term := strings.TrimSpace(req.Query); term != "" {
		cols := c.wl.searchableColumns()
		if len(cols) == 0 {
			return PredicateTree{}, InvalidFilterFieldError{Entity: c.wl.entity, Field: keyQuery}
		}
		tree.Text = &TextMatch{Columns: cols, Term: term, Fold: !c.caseSensitive}
	}

	return tree, nil
}

func (c *Compiler) checkFields(filters map[string]interface{}) error {
	names := make([]string, 0, len(filters))
	for name, val := range filters {
		if val != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		spec, err := c.wl.Lookup(name)
		if err != nil {
			return err
		}
		if !spec.Filterable {
			return InvalidFilterFieldError{Entity: c.wl.entity, Field: name}
		}
	}
	return nil
}

func (c *Compiler) compileField(spec FieldSpec, val interface{}) ([]Predicate, error) {
	switch spec.Kind {
	case KindExact:
		v, ok := val.(string)
		if !ok {
			return nil, invalidValue(spec, fmt.Sprintf("expected a string, got %T", val))
		}
		return []Predicate{newPredicate(spec, OpEq, v)}, nil

	case KindContains:
		s, ok := val.(string)
		if !ok {
			return nil, invalidValue(spec, "expected a string")
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		op := OpContainsFold
		if c.caseSensitive {
			op = OpContains
		}
		return []Predicate{newPredicate(spec, op, s)}, nil

	case KindEnum, KindUUID:
		return compileMultiSelect(spec, val)

	case KindDateRange:
		return compileRange(spec, val, parseDateBound)

	case KindNumberRange:
		return compileRange(spec, val, parseNumberBound)
	}

	return nil, invalidValue(spec, "unsupported filter kind")
}

func compileMultiSelect(spec FieldSpec, val interface{}) ([]Predicate, error) {
	switch v := val.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		if !strings.Contains(v, listSeparator) {
			s, err := checkMember(spec, v)
			if err != nil {
				return nil, err
			}
			return []Predicate{newPredicate(spec, OpEq, s)}, nil
		}
		var items []interface{}
		for _, item := range strings.Split(v, listSeparator) {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return compileMultiSelect(spec, items)
	case []string:
		items := make([]interface{}, len(v))
		for i, s := range v {
			items[i] = s
		}
		return compileMultiSelect(spec, items)
	case []interface{}:
		seen := make(map[string]bool, len(v))
		set := make([]string, 0, len(v))
		for _, item := range v {
			raw, ok := item.(string)
			if !ok {
				return nil, invalidValue(spec, fmt.Sprintf("expected a list of strings, got %T", item))
			}
			s, err := checkMember(spec, raw)
			if err != nil {
				return nil, err
			}
			if !seen[s] {
				seen[s] = true
				set = append(set, s)
			}
		}
		if len(set) == 0 {
			return nil, nil
		}
		return []Predicate{newPredicate(spec, OpIn, set)}, nil
	}
	return nil, invalidValue(spec, "expected a string or a list of strings")
}

func checkMember(spec FieldSpec, value string) (string, error) {
	if spec.Kind == KindUUID {
		if err := validator.ValidateUUID(strings.ToLower(value)); err != nil {
			return "", invalidValue(spec, fmt.Sprintf("%q is not a valid uuid", value))
		}
		id, err := uuid.Parse(value)
		if err != nil {
			return "", invalidValue(spec, fmt.Sprintf("%q is not a valid uuid", value))
		}
		return id.String(), nil
	}

	if err := validator.ValidateOneOf(value, spec.Values...); err != nil || value == "" {
		return "", invalidValue(spec, fmt.Sprintf("%q is not one of %s", value, strings.Join(spec.Values, ",")))
	}
	return value, nil
}

type boundParser func(interface{}) (interface{}, error)

func compileRange(spec FieldSpec, val interface{}, parse boundParser) ([]Predicate, error) {
	rng, ok := val.(map[string]interface{})
	if !ok {
		return nil, invalidValue(spec, "expected an object with from and/or to")
	}
	for key := range rng {
		if key != rangeFrom && key != rangeTo {
			return nil, invalidValue(spec, fmt.Sprintf("unknown range key %q", key))
		}
	}

	var preds []Predicate
	var from, to interface{}
	if raw := rng[rangeFrom]; raw != nil {
		v, err := parse(raw)
		if err != nil {
			return nil, invalidValue(spec, "from: "+err.Error())
		}
		from = v
		preds = append(preds, newPredicate(spec, OpGTE, v))
	}
	if raw := rng[rangeTo]; raw != nil {
		v, err := parse(raw)
		if err != nil {
			return nil, invalidValue(spec, "to: "+err.Error())
		}
		to = v
		preds = append(preds, newPredicate(spec, OpLTE, v))
	}

	if from != nil && to != nil && rangeInverted(from, to) {
		return nil, invalidValue(spec, "from is after to")
	}
	return preds, nil
}

func rangeInverted(from, to interface{}) bool {
	switch f := from.(type) {
	case time.Time:
		return f.After(to.(time.Time))
	case float64:
		return f > to.(float64)
	}
	return false
}

func parseDateBound(v interface{}) (interface{}, error) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("expected a date string")
	}
	s = strings.TrimSpace(s)
	// carbon also understands words such as "now" or "yesterday"
	if s[0] < '0' || s[0] > '9' {
		return nil, fmt.Errorf("%q is not a valid date", s)
	}
	c := carbon.Parse(s, carbon.UTC)
	if c.Error != nil || c.IsInvalid() {
		return nil, fmt.Errorf("%q is not a valid date", s)
	}
	return c.Carbon2Time().UTC(), nil
}

func parseNumberBound(v interface{}) (interface{}, error) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return nil, fmt.Errorf("%q is not a number", n)
		}
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(n), 64); err != nil {
			return nil, fmt.Errorf("%q is not a number", n)
		}
	default:
		return nil, fmt.Errorf("expected a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("expected a finite number")
	}
	return f, nil
}

func newPredicate(spec FieldSpec, op Operator, v interface{}) Predicate {
	return Predicate{Field: spec.Name, Column: spec.Column, Op: op, Value: v}
}

func invalidValue(spec FieldSpec, reason string) error {
	return InvalidFilterValueError{Field: spec.Name, Kind: spec.Kind, Reason: reason}
}
