package search

import (
	"fmt"
	"strings"
)

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

func (d Direction) valid() bool { return d == Ascending || d == Descending }

// SortDirective is the sort preference carried by a request. It can be
// written as {"field": "x", "direction": "desc"}, "x:desc", "-x" or "x".
type SortDirective struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

func (d SortDirective) IsZero() bool { return d.Field == "" && d.Direction == "" }

// SortKey is a resolved, whitelisted ordering. Only one key is ever active.
type SortKey struct {
	Field     string
	Column    string
	Direction Direction
}

func (k SortKey) String() string { return k.Field + ":" + string(k.Direction) }

// ParseSortDirective normalizes the string forms of a sort directive.
func ParseSortDirective(s string) SortDirective {
	s = strings.TrimSpace(s)
	if s == "" {
		return SortDirective{}
	}

	switch s[0] {
	case '-':
		return SortDirective{Field: strings.TrimSpace(s[1:]), Direction: string(Descending)}
	case '+':
		return SortDirective{Field: strings.TrimSpace(s[1:]), Direction: string(Ascending)}
	}

	if field, dir, ok := strings.Cut(s, ":"); ok {
		return SortDirective{Field: strings.TrimSpace(field), Direction: strings.TrimSpace(dir)}
	}
	return SortDirective{Field: s}
}

func sortDirectiveFromValue(v interface{}) (SortDirective, error) {
	switch val := v.(type) {
	case nil:
		return SortDirective{}, nil
	case string:
		return ParseSortDirective(val), nil
	case map[string]interface{}:
		var d SortDirective
		if f, ok := val["field"].(string); ok {
			d.Field = strings.TrimSpace(f)
		}
		if dir, ok := val["direction"].(string); ok {
			d.Direction = strings.TrimSpace(dir)
		}
		return d, nil
	}
	// sort is a preference; anything unreadable falls back to the default later
	return SortDirective{Field: fmt.Sprint(v)}, nil
}

// ResolveSort validates d against wl and falls back to def whenever the field
// is unknown or not sortable, or the direction is neither asc nor desc. An
// omitted direction means ascending.
func ResolveSort(d SortDirective, wl *Whitelist, def SortKey) SortKey {
	def = resolveDefault(def, wl)
	if d.IsZero() || wl == nil {
		return def
	}

	spec, err := wl.Lookup(d.Field)
	if err != nil || !spec.Sortable {
		return def
	}

	dir := Ascending
	if d.Direction != "" {
		dir = Direction(strings.ToLower(d.Direction))
	}
	if !dir.valid() {
		return def
	}

	return SortKey{Field: spec.Name, Column: spec.Column, Direction: dir}
}

func resolveDefault(def SortKey, wl *Whitelist) SortKey {
	if !def.Direction.valid() {
		def.Direction = Ascending
	}
	if def.Column == "" && wl != nil {
		if spec, err := wl.Lookup(def.Field); err == nil {
			def.Column = spec.Column
		}
	}
	if def.Column == "" {
		def.Column = def.Field
	}
	return def
}
