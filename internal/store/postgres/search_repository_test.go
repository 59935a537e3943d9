package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/goto/sift/core/search"
	"github.com/goto/sift/internal/store/postgres"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*postgres.SearchRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})

	repo, err := postgres.NewSearchRepository(postgres.NewClientWithDB(db))
	require.NoError(t, err)
	return repo, mock
}

func appointmentQuery() search.Query {
	return search.Query{
		Table:   "appointments",
		Key:     "id",
		Columns: []string{"id", "status", "reason"},
		Predicates: search.PredicateTree{Predicates: []search.Predicate{
			{Field: "status", Column: "status", Op: search.OpIn, Value: []string{"scheduled", "completed"}},
			{Field: "reason", Column: "reason", Op: search.OpContainsFold, Value: "50%_off"},
			{Field: "scheduled_at", Column: "scheduled_at", Op: search.OpGTE, Value: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		}},
		Sort:   search.SortKey{Field: "scheduled_at", Column: "scheduled_at", Direction: search.Descending},
		Bounds: search.PageBounds{Offset: 20, Limit: 10, Page: 3},
	}
}

func TestNewSearchRepository(t *testing.T) {
	_, err := postgres.NewSearchRepository(nil)
	assert.Error(t, err)
}

func TestSearchRepositoryCount(t *testing.T) {
	t.Run("should translate predicates into a where clause", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta(
			`SELECT count(1) FROM appointments WHERE status IN ($1,$2) AND reason ILIKE $3 AND scheduled_at >= $4`,
		)).
			WithArgs("scheduled", "completed", `%50\%\_off%`, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

		total, err := repo.Count(context.Background(), appointmentQuery())
		require.NoError(t, err)
		assert.Equal(t, 42, total)
	})

	t.Run("should scope on null columns", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(1) FROM tasks WHERE deleted_at IS NULL AND status = $1`)).
			WithArgs("todo").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		total, err := repo.Count(context.Background(), search.Query{
			Table: "tasks",
			Predicates: search.PredicateTree{Predicates: []search.Predicate{
				search.IsNull("deleted_at"),
				{Field: "status", Column: "status", Op: search.OpEq, Value: "todo"},
			}},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
	})

	t.Run("should count everything without predicates", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(1) FROM tasks`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		total, err := repo.Count(context.Background(), search.Query{Table: "tasks"})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("should classify postgres errors", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(1) FROM appointments`)).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.QueryCanceled, Message: "canceling statement due to statement timeout"})

		_, err := repo.Count(context.Background(), appointmentQuery())
		assert.ErrorIs(t, err, postgres.ErrQueryCanceled)
	})
}

func TestSearchRepositoryFetch(t *testing.T) {
	t.Run("should order with a key tiebreak and page with limit and offset", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta(
			`SELECT id, status, reason FROM appointments WHERE status IN ($1,$2) AND reason ILIKE $3 AND scheduled_at >= $4 ORDER BY scheduled_at DESC, id ASC LIMIT 10 OFFSET 20`,
		)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "status", "reason"}).
				AddRow("a1", "scheduled", nil).
				AddRow("a2", "completed", "follow up"))

		rows, err := repo.Fetch(context.Background(), appointmentQuery())
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "a1", *rows[0].String("id"))
		assert.Nil(t, rows[0].String("reason"))
		assert.Equal(t, "follow up", *rows[1].String("reason"))
	})

	t.Run("should match free text across searchable columns", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		q := search.Query{
			Table:   "tasks",
			Key:     "id",
			Columns: []string{"id"},
			Predicates: search.PredicateTree{
				Predicates: []search.Predicate{{Field: "status", Column: "status", Op: search.OpEq, Value: "todo"}},
				Text:       &search.TextMatch{Columns: []string{"title", "description"}, Term: "deploy", Fold: false},
			},
			Sort:   search.SortKey{Field: "id", Column: "id", Direction: search.Ascending},
			Bounds: search.PageBounds{Limit: 5, Page: 1},
		}
		mock.ExpectQuery(regexp.QuoteMeta(
			`SELECT id FROM tasks WHERE status = $1 AND (title LIKE $2 OR description LIKE $3) ORDER BY id ASC LIMIT 5 OFFSET 0`,
		)).
			WithArgs("todo", "%deploy%", "%deploy%").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		rows, err := repo.Fetch(context.Background(), q)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("should return driver errors", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery("SELECT id, status, reason FROM appointments").
			WillReturnError(errors.New("connection refused"))

		_, err := repo.Fetch(context.Background(), appointmentQuery())
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("should reject unknown operators", func(t *testing.T) {
		repo, _ := newMockRepository(t)
		q := appointmentQuery()
		q.Predicates.Predicates = []search.Predicate{{Field: "status", Column: "status", Op: "regex", Value: "x"}}

		_, err := repo.Fetch(context.Background(), q)
		assert.EqualError(t, err, `unsupported operator "regex" on "status"`)
	})
}
