package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goto/sift/core/search"
	"github.com/olivere/elastic/v7"
)

var (
	ErrResultWindowExceeded = errors.New("page is beyond the result window of the index")

	wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
)

// wildcardQuery is a substring match on a keyword field.
type wildcardQuery struct {
	field           string
	value           string
	caseInsensitive bool
}

func newContainsQuery(field, term string, fold bool) wildcardQuery {
	return wildcardQuery{field: field, value: "*" + wildcardEscaper.Replace(term) + "*", caseInsensitive: fold}
}

func (q wildcardQuery) Source() (interface{}, error) {
	params := map[string]interface{}{"value": q.value}
	if q.caseInsensitive {
		params["case_insensitive"] = true
	}
	return map[string]interface{}{
		"wildcard": map[string]interface{}{q.field: params},
	}, nil
}

type countResponse struct {
	Count int `json:"count"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source map[string]interface{} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchRepository answers compiled search queries from one index per entity.
type SearchRepository struct {
	cli *Client
}

func NewSearchRepository(cli *Client) *SearchRepository {
	return &SearchRepository{cli: cli}
}

func (repo *SearchRepository) Count(ctx context.Context, q search.Query) (total int, err error) {
	index := repo.cli.indexName(q.Table)
	defer func(start time.Time) {
		repo.cli.instrumentOp(ctx, instrumentParams{op: "count", index: index, start: start, err: err})
	}(time.Now())

	body, err := buildCountBody(q.Predicates)
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	count := repo.cli.client.Count
	res, err := count(
		count.WithIndex(index),
		count.WithBody(body),
		count.WithContext(ctx),
	)
	if err != nil {
		return 0, elasticSearchError(err)
	}
	defer drainBody(res)
	if res.IsError() {
		return 0, fmt.Errorf("error counting %q: %s", index, errorReasonFromResponse(res))
	}

	var response countResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return response.Count, nil
}

func (repo *SearchRepository) Fetch(ctx context.Context, q search.Query) (rows []search.Row, err error) {
	index := repo.cli.indexName(q.Table)
	defer func(start time.Time) {
		repo.cli.instrumentOp(ctx, instrumentParams{op: "search", index: index, start: start, err: err})
	}(time.Now())

	size := q.Bounds.Limit
	if q.Bounds.Offset > repo.cli.window-size {
		size, err = repo.sizeWithinWindow(ctx, q)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			return []search.Row{}, nil
		}
	}

	body, err := buildSearchBody(q)
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}
	repo.cli.logger.Debug("search query", "index", index, "query", body)

	esSearch := repo.cli.client.Search
	res, err := esSearch(
		esSearch.WithIndex(index),
		esSearch.WithBody(strings.NewReader(body)),
		esSearch.WithFrom(q.Bounds.Offset),
		esSearch.WithSize(size),
		esSearch.WithSourceIncludes(q.Columns...),
		esSearch.WithTrackTotalHits(false),
		esSearch.WithContext(ctx),
	)
	if err != nil {
		return nil, elasticSearchError(err)
	}
	defer drainBody(res)
	if res.IsError() {
		return nil, fmt.Errorf("error searching %q: %s", index, errorReasonFromResponse(res))
	}

	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	var response searchResponse
	if err := dec.Decode(&response); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	rows = make([]search.Row, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		rows = append(rows, search.Row(hit.Source))
	}
	return rows, nil
}

// sizeWithinWindow shrinks a page that reaches past the result window of the
// index. The page is empty when no match lies at or after its offset, and
// ErrResultWindowExceeded is returned only when matches exist that the window
// hides.
func (repo *SearchRepository) sizeWithinWindow(ctx context.Context, q search.Query) (int, error) {
	total, err := repo.Count(ctx, q)
	if err != nil {
		return 0, err
	}
	if total <= q.Bounds.Offset {
		return 0, nil
	}
	if total > repo.cli.window {
		return 0, fmt.Errorf("%w: offset %d limit %d window %d",
			ErrResultWindowExceeded, q.Bounds.Offset, q.Bounds.Limit, repo.cli.window)
	}
	return repo.cli.window - q.Bounds.Offset, nil
}

func buildFilterQuery(tree search.PredicateTree) (*elastic.BoolQuery, error) {
	boolQuery := elastic.NewBoolQuery()
	for _, p := range tree.Predicates {
		q, err := predicateToQuery(p)
		if err != nil {
			return nil, err
		}
		boolQuery.Filter(q)
	}

	if tree.Text != nil && len(tree.Text.Columns) > 0 {
		textQuery := elastic.NewBoolQuery().MinimumNumberShouldMatch(1)
		for _, col := range tree.Text.Columns {
			textQuery.Should(newContainsQuery(col, tree.Text.Term, tree.Text.Fold))
		}
		boolQuery.Filter(textQuery)
	}
	return boolQuery, nil
}

func predicateToQuery(p search.Predicate) (elastic.Query, error) {
	switch p.Op {
	case search.OpEq:
		return elastic.NewTermQuery(p.Column, p.Value), nil
	case search.OpIn:
		values, ok := p.Value.([]string)
		if !ok {
			return nil, fmt.Errorf("set predicate on %q needs a list of strings, got %T", p.Field, p.Value)
		}
		terms := make([]interface{}, len(values))
		for i, v := range values {
			terms[i] = v
		}
		return elastic.NewTermsQuery(p.Column, terms...), nil
	case search.OpContains, search.OpContainsFold:
		s, ok := p.Value.(string)
		if !ok {
			return nil, fmt.Errorf("contains predicate on %q needs a string, got %T", p.Field, p.Value)
		}
		return newContainsQuery(p.Column, s, p.Op == search.OpContainsFold), nil
	case search.OpGTE:
		return elastic.NewRangeQuery(p.Column).Gte(rangeValue(p.Value)), nil
	case search.OpLTE:
		return elastic.NewRangeQuery(p.Column).Lte(rangeValue(p.Value)), nil
	case search.OpIsNull:
		return elastic.NewBoolQuery().MustNot(elastic.NewExistsQuery(p.Column)), nil
	}
	return nil, fmt.Errorf("unsupported operator %q on %q", p.Op, p.Field)
}

func rangeValue(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return search.NormalizeTime(t)
	}
	return v
}

func buildCountBody(tree search.PredicateTree) (io.Reader, error) {
	query, err := buildFilterQuery(tree)
	if err != nil {
		return nil, err
	}
	src, err := query.Source()
	if err != nil {
		return nil, err
	}

	payload := new(bytes.Buffer)
	if err := json.NewEncoder(payload).Encode(map[string]interface{}{"query": src}); err != nil {
		return nil, fmt.Errorf("error building reader %w", err)
	}
	return payload, nil
}

func buildSearchBody(q search.Query) (string, error) {
	query, err := buildFilterQuery(q.Predicates)
	if err != nil {
		return "", err
	}

	primary := elastic.NewFieldSort(q.Sort.Column).Order(q.Sort.Direction != search.Descending)
	if q.Sort.Direction == search.Descending {
		primary = primary.Missing("_first")
	}
	sorters := []elastic.Sorter{primary}
	if q.Key != "" && q.Key != q.Sort.Column {
		sorters = append(sorters, elastic.NewFieldSort(q.Key).Asc())
	}

	return elastic.NewSearchRequest().
		Query(query).
		SortBy(sorters...).
		Body()
}
