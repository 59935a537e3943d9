package elasticsearch_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/goto/salt/log"
	"github.com/goto/sift/core/appointment"
	"github.com/goto/sift/core/search"
	store "github.com/goto/sift/internal/store/elasticsearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCluster answers the handful of endpoints the repository uses and keeps
// the last body received per path.
type fakeCluster struct {
	mu       sync.Mutex
	bodies   map[string]string
	queries  map[string]string
	handlers map[string]func(w http.ResponseWriter)
}

func newFakeCluster(t *testing.T) (*fakeCluster, *store.Client) {
	t.Helper()

	fc := &fakeCluster{
		bodies:   map[string]string{},
		queries:  map[string]string{},
		handlers: map[string]func(w http.ResponseWriter){},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		body, _ := io.ReadAll(r.Body)
		fc.mu.Lock()
		fc.bodies[r.URL.Path] = string(body)
		fc.queries[r.URL.Path] = r.URL.RawQuery
		h := fc.handlers[r.Method+" "+r.URL.Path]
		fc.mu.Unlock()

		if r.URL.Path == "/" {
			io.WriteString(w, `{"cluster_name":"sift-test","version":{"number":"7.16.0","build_flavor":"default"},"tagline":"You Know, for Search"}`)
			return
		}
		if h == nil {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":{"reason":"no such index [`+r.URL.Path+`]"},"status":404}`)
			return
		}
		h(w)
	}))
	t.Cleanup(srv.Close)

	esClient, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	cli, err := store.NewClient(log.NewNoop(), store.Config{MaxResultWindow: 100}, store.WithClient(esClient), store.WithIndexPrefix("test-"))
	require.NoError(t, err)
	return fc, cli
}

func (fc *fakeCluster) handle(route string, status int, body string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.handlers[route] = func(w http.ResponseWriter) {
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func (fc *fakeCluster) body(path string) string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.bodies[path]
}

func appointmentQuery() search.Query {
	return search.Query{
		Table:   "appointments",
		Key:     "id",
		Columns: []string{"id", "status", "reason", "scheduled_at"},
		Predicates: search.PredicateTree{Predicates: []search.Predicate{
			{Field: "status", Column: "status", Op: search.OpIn, Value: []string{"scheduled", "no_show"}},
			{Field: "reason", Column: "reason", Op: search.OpContainsFold, Value: "knee*"},
			{Field: "scheduled_at", Column: "scheduled_at", Op: search.OpGTE, Value: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		}},
		Sort:   search.SortKey{Field: "scheduled_at", Column: "scheduled_at", Direction: search.Descending},
		Bounds: search.PageBounds{Offset: 10, Limit: 10, Page: 2},
	}
}

const expectedFilter = `{
	"bool": {
		"filter": [
			{"terms": {"status": ["scheduled", "no_show"]}},
			{"wildcard": {"reason": {"value": "*knee\\**", "case_insensitive": true}}},
			{"range": {"scheduled_at": {"from": "2023-01-01T00:00:00.000Z", "include_lower": true, "include_upper": true, "to": null}}}
		]
	}
}`

func TestSearchRepositoryCount(t *testing.T) {
	t.Run("should send the filter query to the count api", func(t *testing.T) {
		fc, cli := newFakeCluster(t)
		fc.handle("POST /test-appointments/_count", http.StatusOK, `{"count": 17}`)

		total, err := store.NewSearchRepository(cli).Count(context.Background(), appointmentQuery())
		require.NoError(t, err)
		assert.Equal(t, 17, total)
		assert.JSONEq(t, `{"query":`+expectedFilter+`}`, fc.body("/test-appointments/_count"))
	})

	t.Run("should surface the error reason", func(t *testing.T) {
		_, cli := newFakeCluster(t)

		_, err := store.NewSearchRepository(cli).Count(context.Background(), appointmentQuery())
		assert.ErrorContains(t, err, "no such index [/test-appointments/_count]")
	})
}

func TestSearchRepositoryFetch(t *testing.T) {
	t.Run("should page, sort and project the sources", func(t *testing.T) {
		fc, cli := newFakeCluster(t)
		fc.handle("POST /test-appointments/_search", http.StatusOK, `{
			"hits": {"hits": [
				{"_source": {"id": "a1", "status": "scheduled", "reason": null, "scheduled_at": "2023-05-01T09:00:00Z"}},
				{"_source": {"id": "a2", "status": "no_show"}}
			]}
		}`)

		rows, err := store.NewSearchRepository(cli).Fetch(context.Background(), appointmentQuery())
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Nil(t, rows[0].String("reason"))
		assert.Equal(t, "2023-05-01T09:00:00.000Z", *rows[0].Time("scheduled_at"))
		assert.Nil(t, rows[1].Time("scheduled_at"))

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(fc.body("/test-appointments/_search")), &body))
		assert.Equal(t, []interface{}{
			map[string]interface{}{"scheduled_at": map[string]interface{}{"order": "desc", "missing": "_first"}},
			map[string]interface{}{"id": map[string]interface{}{"order": "asc"}},
		}, body["sort"])

		fc.mu.Lock()
		rawQuery := fc.queries["/test-appointments/_search"]
		fc.mu.Unlock()
		assert.Contains(t, rawQuery, "from=10")
		assert.Contains(t, rawQuery, "size=10")
		assert.Contains(t, rawQuery, "_source_includes=id%2Cstatus%2Creason%2Cscheduled_at")
	})

	t.Run("should return an empty page past the end of the matches", func(t *testing.T) {
		fc, cli := newFakeCluster(t)
		fc.handle("POST /test-appointments/_count", http.StatusOK, `{"count": 25}`)

		s, err := appointment.NewSearcher(store.NewSearchRepository(cli))
		require.NoError(t, err)

		env, err := s.Search(context.Background(), search.SearchRequest{Page: 9999, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, env.Data)
		assert.Equal(t, search.Pagination{Current: 9999, Limit: 10, Records: 25, Pages: 3}, env.Pagination)
		assert.Empty(t, fc.body("/test-appointments/_search"))
	})

	t.Run("should shrink a page that crosses the result window", func(t *testing.T) {
		fc, cli := newFakeCluster(t)
		fc.handle("POST /test-appointments/_count", http.StatusOK, `{"count": 97}`)
		fc.handle("POST /test-appointments/_search", http.StatusOK, `{"hits": {"hits": []}}`)
		q := appointmentQuery()
		q.Bounds = search.PageBounds{Offset: 95, Limit: 10, Page: 10}

		rows, err := store.NewSearchRepository(cli).Fetch(context.Background(), q)
		require.NoError(t, err)
		assert.Empty(t, rows)

		fc.mu.Lock()
		rawQuery := fc.queries["/test-appointments/_search"]
		fc.mu.Unlock()
		assert.Contains(t, rawQuery, "from=95")
		assert.Contains(t, rawQuery, "size=5")
	})

	t.Run("should refuse pages hidden by the result window", func(t *testing.T) {
		fc, cli := newFakeCluster(t)
		fc.handle("POST /test-appointments/_count", http.StatusOK, `{"count": 500}`)
		q := appointmentQuery()
		q.Bounds = search.PageBounds{Offset: 100, Limit: 10, Page: 11}

		_, err := store.NewSearchRepository(cli).Fetch(context.Background(), q)
		assert.ErrorIs(t, err, store.ErrResultWindowExceeded)
	})

	t.Run("should serve a searcher end to end", func(t *testing.T) {
		fc, cli := newFakeCluster(t)
		fc.handle("POST /test-appointments/_count", http.StatusOK, `{"count": 1}`)
		fc.handle("POST /test-appointments/_search", http.StatusOK, `{"hits": {"hits": [{"_source": {"id": "a1", "location": "Room 1"}}]}}`)

		s, err := appointment.NewSearcher(store.NewSearchRepository(cli))
		require.NoError(t, err)

		env, err := s.Search(context.Background(), search.SearchRequest{Filters: map[string]interface{}{"location": "Room 1"}})
		require.NoError(t, err)
		assert.Equal(t, search.Pagination{Current: 1, Limit: 10, Records: 1, Pages: 1}, env.Pagination)
		require.Len(t, env.Data, 1)
		assert.Equal(t, "Room 1", *env.Data[0].Location)
	})
}

func TestMappingFor(t *testing.T) {
	m := store.MappingFor(appointment.Whitelist, appointment.Columns, appointment.Entity.Scope...)
	assert.Equal(t, "false", m.Dynamic)
	assert.Equal(t, "keyword", m.Properties["id"].Type)
	assert.Equal(t, "keyword", m.Properties["patient_id"].Type)
	assert.Equal(t, "date", m.Properties["scheduled_at"].Type)
	assert.Equal(t, "keyword", m.Properties["deleted_at"].Type)
	_, internal := m.Properties["internal_notes"]
	assert.False(t, internal)
}

func TestSearchRepositoryScope(t *testing.T) {
	fc, cli := newFakeCluster(t)
	fc.handle("POST /test-appointments/_count", http.StatusOK, `{"count": 0}`)

	_, err := store.NewSearchRepository(cli).Count(context.Background(), search.Query{
		Table:      "appointments",
		Predicates: search.PredicateTree{Predicates: []search.Predicate{search.IsNull("deleted_at")}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"query": {"bool": {"filter": {"bool": {"must_not": {"exists": {"field": "deleted_at"}}}}}}}`,
		fc.body("/test-appointments/_count"))
}

func TestClientMigrate(t *testing.T) {
	fc, cli := newFakeCluster(t)
	fc.handle("PUT /test-appointments", http.StatusOK, `{"acknowledged": true}`)

	err := cli.Migrate(context.Background(), "appointments", store.MappingFor(appointment.Whitelist, appointment.Columns))
	require.NoError(t, err)
	assert.Contains(t, fc.body("/test-appointments"), `"index.max_result_window": 100`)
}
