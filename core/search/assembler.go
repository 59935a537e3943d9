package search

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const (
	opCount = "count"
	opFetch = "fetch"
)

//go:generate mockery --name=DataSource -r --case underscore --with-expecter --structname DataSource --filename data_source.go --output=./mocks

// DataSource executes compiled queries. Count ignores Sort and Bounds.
type DataSource interface {
	Count(ctx context.Context, q Query) (int, error)
	Fetch(ctx context.Context, q Query) ([]Row, error)
}

// Query is everything a DataSource needs to answer one search.
type Query struct {
	Table      string
	Key        string
	Columns    []string
	Predicates PredicateTree
	Sort       SortKey
	Bounds     PageBounds
}

type Pagination struct {
	Current int `json:"current"`
	Limit   int `json:"limit"`
	Records int `json:"records"`
	Pages   int `json:"pages"`
}

// Envelope is the page returned to callers.
type Envelope[T any] struct {
	Pagination Pagination `json:"pagination"`
	Data       []T        `json:"data"`
}

// RowMapper projects a raw row onto a summary.
type RowMapper[T any] func(Row) (T, error)

// Assemble issues one count and one fetch for q and maps the fetched rows.
// With concurrent set the two reads run in parallel. They are not
// transactionally consistent, so Records and len(Data) may disagree when
// writes land between them.
func Assemble[T any](ctx context.Context, ds DataSource, q Query, mapRow RowMapper[T], concurrent bool) (Envelope[T], error) {
	if ds == nil {
		return Envelope[T]{}, ErrNilDataSource
	}

	var (
		total int
		rows  []Row
	)
	count := func(ctx context.Context) error {
		n, err := ds.Count(ctx, q)
		if err != nil {
			return DataSourceError{Op: opCount, Entity: q.Table, Err: err}
		}
		total = n
		return nil
	}
	fetch := func(ctx context.Context) error {
		rs, err := ds.Fetch(ctx, q)
		if err != nil {
			return DataSourceError{Op: opFetch, Entity: q.Table, Err: err}
		}
		rows = rs
		return nil
	}

	if concurrent {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return count(gctx) })
		g.Go(func() error { return fetch(gctx) })
		if err := g.Wait(); err != nil {
			return Envelope[T]{}, err
		}
	} else {
		if err := count(ctx); err != nil {
			return Envelope[T]{}, err
		}
		if err := fetch(ctx); err != nil {
			return Envelope[T]{}, err
		}
	}

	data := make([]T, 0, len(rows))
	for i, row := range rows {
		item, err := mapRow(row)
		if err != nil {
			return Envelope[T]{}, fmt.Errorf("map %s row %d: %w", q.Table, i, err)
		}
		data = append(data, item)
	}

	return Envelope[T]{
		Pagination: Pagination{
			Current: q.Bounds.Page,
			Limit:   q.Bounds.Limit,
			Records: total,
			Pages:   PageCount(total, q.Bounds.Limit),
		},
		Data: data,
	}, nil
}
