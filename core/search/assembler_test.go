package search_test

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/goto/sift/core/search"
	"github.com/goto/sift/core/search/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type ticketSummary struct {
	ID     string  `json:"id"`
	Title  *string `json:"title,omitempty"`
	Points *int64  `json:"points,omitempty"`
}

func mapTicket(r search.Row) (ticketSummary, error) {
	id := r.String("id")
	if id == nil {
		return ticketSummary{}, errors.New("missing id")
	}
	return ticketSummary{ID: *id, Title: r.String("title"), Points: r.Int("points")}, nil
}

func ticketRows(n int) []search.Row {
	rows := make([]search.Row, n)
	for i := range rows {
		rows[i] = search.Row{"id": strconv.Itoa(i + 1), "title": "ticket " + strconv.Itoa(i+1), "points": int64(i)}
	}
	return rows
}

func TestAssemble(t *testing.T) {
	ctx := context.Background()
	query := search.Query{
		Table:  "tickets",
		Key:    "id",
		Sort:   search.SortKey{Field: "points", Column: "points", Direction: search.Descending},
		Bounds: search.Paginate(3, 10, search.PageConfig{}),
	}

	for _, concurrent := range []bool{true, false} {
		name := "sequential"
		if concurrent {
			name = "concurrent"
		}

		t.Run(name+" should assemble the envelope from both reads", func(t *testing.T) {
			ds := mocks.NewDataSource(t)
			ds.EXPECT().Count(mock.Anything, query).Return(25, nil).Once()
			ds.EXPECT().Fetch(mock.Anything, query).Return(ticketRows(5), nil).Once()

			env, err := search.Assemble(ctx, ds, query, mapTicket, concurrent)
			require.NoError(t, err)

			assert.Equal(t, search.Pagination{Current: 3, Limit: 10, Records: 25, Pages: 3}, env.Pagination)
			require.Len(t, env.Data, 5)
			assert.Equal(t, "1", env.Data[0].ID)
		})

		t.Run(name+" should return an empty non-nil page past the end", func(t *testing.T) {
			ds := mocks.NewDataSource(t)
			ds.EXPECT().Count(mock.Anything, query).Return(0, nil)
			ds.EXPECT().Fetch(mock.Anything, query).Return(nil, nil)

			env, err := search.Assemble(ctx, ds, query, mapTicket, concurrent)
			require.NoError(t, err)
			assert.NotNil(t, env.Data)
			assert.Empty(t, env.Data)
			assert.Equal(t, 0, env.Pagination.Pages)
			assert.Equal(t, 3, env.Pagination.Current)
		})

		t.Run(name+" should wrap a failing fetch", func(t *testing.T) {
			cause := errors.New("connection reset")
			ds := mocks.NewDataSource(t)
			ds.EXPECT().Count(mock.Anything, query).Return(25, nil).Maybe()
			ds.EXPECT().Fetch(mock.Anything, query).Return(nil, cause)

			_, err := search.Assemble(ctx, ds, query, mapTicket, concurrent)

			var dsErr search.DataSourceError
			require.ErrorAs(t, err, &dsErr)
			assert.Equal(t, "fetch", dsErr.Op)
			assert.Equal(t, "tickets", dsErr.Entity)
			assert.ErrorIs(t, err, cause)
			assert.False(t, search.IsClientError(err))
		})

		t.Run(name+" should wrap a failing count", func(t *testing.T) {
			cause := errors.New("timeout")
			ds := mocks.NewDataSource(t)
			ds.EXPECT().Count(mock.Anything, query).Return(0, cause)
			ds.EXPECT().Fetch(mock.Anything, query).Return(ticketRows(1), nil).Maybe()

			_, err := search.Assemble(ctx, ds, query, mapTicket, concurrent)

			var dsErr search.DataSourceError
			require.ErrorAs(t, err, &dsErr)
			assert.Equal(t, "count", dsErr.Op)
			assert.EqualError(t, err, "data source error: count: tickets: timeout")
		})
	}

	t.Run("should not fetch after a failed count when sequential", func(t *testing.T) {
		ds := mocks.NewDataSource(t)
		ds.EXPECT().Count(mock.Anything, query).Return(0, errors.New("down"))

		_, err := search.Assemble(ctx, ds, query, mapTicket, false)
		assert.Error(t, err)
		ds.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("should issue exactly one count and one fetch", func(t *testing.T) {
		var counts, fetches int32
		ds := mocks.NewDataSource(t)
		ds.EXPECT().Count(mock.Anything, query).RunAndReturn(func(context.Context, search.Query) (int, error) {
			atomic.AddInt32(&counts, 1)
			return 1, nil
		})
		ds.EXPECT().Fetch(mock.Anything, query).RunAndReturn(func(context.Context, search.Query) ([]search.Row, error) {
			atomic.AddInt32(&fetches, 1)
			return ticketRows(1), nil
		})

		_, err := search.Assemble(ctx, ds, query, mapTicket, true)
		require.NoError(t, err)
		assert.EqualValues(t, 1, atomic.LoadInt32(&counts))
		assert.EqualValues(t, 1, atomic.LoadInt32(&fetches))
	})

	t.Run("should report rows the mapper rejects", func(t *testing.T) {
		ds := mocks.NewDataSource(t)
		ds.EXPECT().Count(mock.Anything, query).Return(1, nil)
		ds.EXPECT().Fetch(mock.Anything, query).Return([]search.Row{{"title": "orphan"}}, nil)

		_, err := search.Assemble(ctx, ds, query, mapTicket, true)
		assert.EqualError(t, err, "map tickets row 0: missing id")
	})

	t.Run("should reject a nil data source", func(t *testing.T) {
		_, err := search.Assemble[ticketSummary](ctx, nil, query, mapTicket, true)
		assert.ErrorIs(t, err, search.ErrNilDataSource)
	})
}
