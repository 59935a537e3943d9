package elasticsearch

import (
	"github.com/goto/sift/core/search"
)

const defaultMaxResultWindow = 10000

// used as body to create index requests
var indexSettingsTemplate = `{
	"mappings": %s,
	"settings": {
		"index.max_result_window": %d,
		"index.mapping.ignore_malformed": true
	}
}`

type Property struct {
	Type string `json:"type"`
}

type Mapping struct {
	Dynamic    string              `json:"dynamic"`
	Properties map[string]Property `json:"properties"`
}

// MappingFor derives the index mapping of an entity from its whitelist.
// Columns that are not declared in the whitelist are stored as keywords, and
// anything else in a document is ignored by the index.
func MappingFor(wl *search.Whitelist, columns []string, scope ...search.Predicate) Mapping {
	m := Mapping{Dynamic: "false", Properties: make(map[string]Property, len(columns))}
	for _, col := range columns {
		m.Properties[col] = Property{Type: "keyword"}
	}
	for _, p := range scope {
		m.Properties[p.Column] = Property{Type: "keyword"}
	}
	for _, f := range wl.Fields() {
		m.Properties[f.Column] = Property{Type: esType(f.Kind)}
	}
	return m
}

func esType(kind search.FilterKind) string {
	switch kind {
	case search.KindDateRange:
		return "date"
	case search.KindNumberRange:
		return "double"
	}
	return "keyword"
}
