package cli

import (
	"fmt"
	"sort"

	"github.com/goto/sift/core/appointment"
	"github.com/goto/sift/core/candidate"
	"github.com/goto/sift/core/search"
	"github.com/goto/sift/core/task"
	handlersv1 "github.com/goto/sift/internal/server/v1"
)

type entity struct {
	table       string
	whitelist   *search.Whitelist
	columns     []string
	scope       []search.Predicate
	newSearcher func(ds search.DataSource, opts ...search.SearcherOption) (handlersv1.Searcher, error)
}

var entities = map[string]entity{
	appointment.EntityName: {
		table:     appointment.Entity.Table,
		whitelist: appointment.Whitelist,
		columns:   appointment.Columns,
		scope:     appointment.Entity.Scope,
		newSearcher: func(ds search.DataSource, opts ...search.SearcherOption) (handlersv1.Searcher, error) {
			return appointment.NewSearcher(ds, opts...)
		},
	},
	task.EntityName: {
		table:     task.Entity.Table,
		whitelist: task.Whitelist,
		columns:   task.Columns,
		scope:     task.Entity.Scope,
		newSearcher: func(ds search.DataSource, opts ...search.SearcherOption) (handlersv1.Searcher, error) {
			return task.NewSearcher(ds, opts...)
		},
	},
	candidate.EntityName: {
		table:     candidate.Entity.Table,
		whitelist: candidate.Whitelist,
		columns:   candidate.Columns,
		scope:     candidate.Entity.Scope,
		newSearcher: func(ds search.DataSource, opts ...search.SearcherOption) (handlersv1.Searcher, error) {
			return candidate.NewSearcher(ds, opts...)
		},
	},
}

func entityNames() []string {
	names := make([]string, 0, len(entities))
	for name := range entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupEntity(name string) (entity, error) {
	e, ok := entities[name]
	if !ok {
		return entity{}, fmt.Errorf("unknown entity %q, expected one of %v", name, entityNames())
	}
	return e, nil
}

func newSearchers(ds search.DataSource, opts ...search.SearcherOption) ([]handlersv1.Searcher, error) {
	var searchers []handlersv1.Searcher
	for _, name := range entityNames() {
		s, err := entities[name].newSearcher(ds, opts...)
		if err != nil {
			return nil, fmt.Errorf("create %s searcher: %w", name, err)
		}
		searchers = append(searchers, s)
	}
	return searchers, nil
}
