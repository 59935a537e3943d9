package search

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	keyPage     = "page"
	keyLimit    = "limit"
	keyPageSize = "page_size"
	keySort     = "sort"
	keyQuery    = "q"
	keySearch   = "search"

	filterPrefix = "filter."
	rangeFrom    = "from"
	rangeTo      = "to"

	// joins the members of a multi-select given as one string
	listSeparator = ","

	// keeps (page-1)*limit far away from overflowing
	maxPageValue = math.MaxInt32
)

// SearchRequest is the flat, declarative input of a search. A nil entry in
// Filters means the same thing as a missing one: no constraint.
type SearchRequest struct {
	Filters map[string]interface{}
	Query   string
	Page    int
	Limit   int
	Sort    SortDirective
}

// UnmarshalJSON decodes a flat object where every key other than the reserved
// paging, sorting and free-text keys is a filter.
func (r *SearchRequest) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode search request: %w", err)
	}

	req := SearchRequest{Filters: make(map[string]interface{}, len(raw))}
	for key, val := range raw {
		switch key {
		case keyPage:
			req.Page = toPositiveInt(val)
		case keyLimit:
			req.Limit = toPositiveInt(val)
		case keyPageSize:
			if _, ok := raw[keyLimit]; !ok {
				req.Limit = toPositiveInt(val)
			}
		case keySort:
			d, err := sortDirectiveFromValue(val)
			if err != nil {
				return err
			}
			req.Sort = d
		case keyQuery, keySearch:
			if s, ok := val.(string); ok && req.Query == "" {
				req.Query = s
			}
		default:
			req.Filters[key] = val
		}
	}

	*r = req
	return nil
}

// FromValues builds a request out of query string parameters. Filters use the
// "filter.<field>" convention and "filter.<field>.from" / "filter.<field>.to"
// become a range. Values are kept as given: a repeated key becomes a list and
// a multi-select field also splits a single value on commas. Blank values
// mean no constraint.
func FromValues(values url.Values) SearchRequest {
	req := SearchRequest{Filters: map[string]interface{}{}}

	req.Page = toPositiveInt(values.Get(keyPage))
	req.Limit = toPositiveInt(values.Get(keyLimit))
	if req.Limit == 0 {
		req.Limit = toPositiveInt(values.Get(keyPageSize))
	}
	req.Sort = ParseSortDirective(values.Get(keySort))
	req.Query = values.Get(keyQuery)
	if req.Query == "" {
		req.Query = values.Get(keySearch)
	}

	for key, vals := range values {
		if !strings.HasPrefix(key, filterPrefix) {
			continue
		}
		field := strings.TrimPrefix(key, filterPrefix)

		var items []interface{}
		for _, v := range vals {
			if strings.TrimSpace(v) != "" {
				items = append(items, v)
			}
		}
		if len(items) == 0 {
			continue
		}

		if name, bound, ok := splitRangeKey(field); ok {
			rng, _ := req.Filters[name].(map[string]interface{})
			if rng == nil {
				rng = map[string]interface{}{}
			}
			rng[bound] = items[0]
			req.Filters[name] = rng
			continue
		}

		if len(items) == 1 {
			req.Filters[field] = items[0]
		} else {
			req.Filters[field] = items
		}
	}

	return req
}

func splitRangeKey(field string) (name, bound string, ok bool) {
	i := strings.LastIndex(field, ".")
	if i <= 0 {
		return "", "", false
	}
	switch field[i+1:] {
	case rangeFrom, rangeTo:
		return field[:i], field[i+1:], true
	}
	return "", "", false
}

// toPositiveInt returns 0 for anything that is not a positive integer, which
// the paginator treats as absent.
func toPositiveInt(v interface{}) int {
	var f float64
	switch val := v.(type) {
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case float64:
		f = val
	case json.Number:
		n, err := val.Float64()
		if err != nil {
			return 0
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		return 0
	}

	if f != math.Trunc(f) || f < 1 {
		return 0
	}
	if f > maxPageValue {
		return maxPageValue
	}
	return int(f)
}
