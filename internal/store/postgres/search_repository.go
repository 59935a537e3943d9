package postgres

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/goto/sift/core/search"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchRepository answers compiled search queries from postgres tables.
type SearchRepository struct {
	client *Client
}

// NewSearchRepository initializes search repository clients
func NewSearchRepository(c *Client) (*SearchRepository, error) {
	if c == nil {
		return nil, errNilPostgresClient
	}
	return &SearchRepository{client: c}, nil
}

func (r *SearchRepository) Count(ctx context.Context, q search.Query) (int, error) {
	query, args, err := r.buildCountSQL(q)
	if err != nil {
		return 0, err
	}

	ctx, cancel := r.client.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.client.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("error counting %s: %w", q.Table, checkPostgresError(err))
	}
	return total, nil
}

func (r *SearchRepository) Fetch(ctx context.Context, q search.Query) ([]search.Row, error) {
	query, args, err := r.buildFetchSQL(q)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.client.withTimeout(ctx)
	defer cancel()

	rows, err := r.client.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", q.Table, checkPostgresError(err))
	}
	defer rows.Close()

	var result []search.Row
	for rows.Next() {
		row := make(map[string]interface{}, len(q.Columns))
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("error scanning %s row: %w", q.Table, err)
		}
		result = append(result, search.Row(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", q.Table, checkPostgresError(err))
	}
	return result, nil
}

func (r *SearchRepository) buildCountSQL(q search.Query) (string, []interface{}, error) {
	builder := sq.Select("count(1)").From(q.Table)
	builder, err := r.buildFilterQuery(builder, q.Predicates)
	if err != nil {
		return "", nil, err
	}
	return r.buildSQL(builder)
}

func (r *SearchRepository) buildFetchSQL(q search.Query) (string, []interface{}, error) {
	builder := sq.Select(q.Columns...).From(q.Table)
	builder, err := r.buildFilterQuery(builder, q.Predicates)
	if err != nil {
		return "", nil, err
	}
	builder = r.buildOrderQuery(builder, q).
		Limit(uint64(q.Bounds.Limit)).
		Offset(uint64(q.Bounds.Offset))
	return r.buildSQL(builder)
}

func (r *SearchRepository) buildFilterQuery(builder sq.SelectBuilder, tree search.PredicateTree) (sq.SelectBuilder, error) {
	for _, p := range tree.Predicates {
		cond, err := predicateToSqlizer(p)
		if err != nil {
			return builder, err
		}
		builder = builder.Where(cond)
	}

	if tree.Text != nil && len(tree.Text.Columns) > 0 {
		term := "%" + likeEscaper.Replace(tree.Text.Term) + "%"
		var or sq.Or
		for _, col := range tree.Text.Columns {
			if tree.Text.Fold {
				or = append(or, sq.ILike{col: term})
			} else {
				or = append(or, sq.Like{col: term})
			}
		}
		builder = builder.Where(or)
	}
	return builder, nil
}

// buildOrderQuery orders by the resolved key and breaks ties on the entity key
// so that pages do not overlap.
func (r *SearchRepository) buildOrderQuery(builder sq.SelectBuilder, q search.Query) sq.SelectBuilder {
	dir := sortDirectionAscending
	if q.Sort.Direction == search.Descending {
		dir = sortDirectionDescending
	}

	orderBy := []string{q.Sort.Column + " " + dir}
	if q.Key != "" && q.Key != q.Sort.Column {
		orderBy = append(orderBy, q.Key+" "+sortDirectionAscending)
	}
	return builder.OrderBy(orderBy...)
}

func predicateToSqlizer(p search.Predicate) (sq.Sqlizer, error) {
	switch p.Op {
	case search.OpEq, search.OpIn:
		return sq.Eq{p.Column: p.Value}, nil
	case search.OpIsNull:
		return sq.Eq{p.Column: nil}, nil
	case search.OpContains, search.OpContainsFold:
		s, ok := p.Value.(string)
		if !ok {
			return nil, fmt.Errorf("contains predicate on %q needs a string, got %T", p.Field, p.Value)
		}
		term := "%" + likeEscaper.Replace(s) + "%"
		if p.Op == search.OpContainsFold {
			return sq.ILike{p.Column: term}, nil
		}
		return sq.Like{p.Column: term}, nil
	case search.OpGTE:
		return sq.GtOrEq{p.Column: p.Value}, nil
	case search.OpLTE:
		return sq.LtOrEq{p.Column: p.Value}, nil
	}
	return nil, fmt.Errorf("unsupported operator %q on %q", p.Op, p.Field)
}

type sqlBuilder interface {
	ToSql() (string, []interface{}, error)
}

func (r *SearchRepository) buildSQL(builder sqlBuilder) (query string, args []interface{}, err error) {
	query, args, err = builder.ToSql()
	if err != nil {
		err = fmt.Errorf("error transforming to sql: %w", err)
		return
	}
	query, err = sq.Dollar.ReplacePlaceholders(query)
	if err != nil {
		err = fmt.Errorf("error replacing placeholders to dollar")
		return
	}

	return
}
