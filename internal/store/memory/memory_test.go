package memory_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/goto/sift/core/appointment"
	"github.com/goto/sift/core/candidate"
	"github.com/goto/sift/core/search"
	"github.com/goto/sift/core/search/mocks"
	"github.com/goto/sift/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var statuses = []string{"scheduled", "completed", "cancelled", "no_show"}

// seedAppointments inserts n appointments; every fourth one from the first is
// scheduled until scheduledCount is reached.
func seedAppointments(store *memory.Store, n, scheduledCount int) {
	base := time.Date(2023, 1, 1, 8, 0, 0, 0, time.UTC)
	scheduled := 0
	for i := 0; i < n; i++ {
		status := statuses[1+i%3]
		if scheduled < scheduledCount && i%2 == 0 {
			status = "scheduled"
			scheduled++
		}
		row := search.Row{
			"id":             fmt.Sprintf("appt-%02d", i),
			"patient_id":     uuid.NewString(),
			"provider_id":    uuid.NewString(),
			"status":         status,
			"location":       fmt.Sprintf("Room %d", i%3),
			"scheduled_at":   base.Add(time.Duration(i) * time.Hour),
			"created_at":     base,
			"internal_notes": "do not leak",
			"deleted_at":     nil,
		}
		if i%5 != 0 {
			row["reason"] = fmt.Sprintf("visit %d", i)
		}
		store.Insert("appointments", row)
	}
}

type ScenarioTestSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memory.Store
	searcher *search.Searcher[appointment.Appointment]
}

func (s *ScenarioTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()

	var err error
	s.searcher, err = appointment.NewSearcher(s.store)
	s.Require().NoError(err)
}

func (s *ScenarioTestSuite) TestFilterByStatus() {
	seedAppointments(s.store, 10, 4)

	env, err := s.searcher.Search(s.ctx, search.SearchRequest{
		Filters: map[string]interface{}{"status": []interface{}{"scheduled"}},
	})
	s.Require().NoError(err)
	s.Len(env.Data, 4)
	for _, a := range env.Data {
		s.Equal("scheduled", *a.Status)
	}
}

func (s *ScenarioTestSuite) TestEmptyFilterFirstPage() {
	seedAppointments(s.store, 25, 0)

	env, err := s.searcher.Search(s.ctx, search.SearchRequest{Filters: map[string]interface{}{}, Page: 1, Limit: 10})
	s.Require().NoError(err)
	s.Equal(search.Pagination{Current: 1, Limit: 10, Records: 25, Pages: 3}, env.Pagination)
	s.Len(env.Data, 10)
}

func (s *ScenarioTestSuite) TestPageBeyondTheEnd() {
	seedAppointments(s.store, 25, 0)

	env, err := s.searcher.Search(s.ctx, search.SearchRequest{Page: 9999, Limit: 10})
	s.Require().NoError(err)
	s.NotNil(env.Data)
	s.Empty(env.Data)
	s.Equal(search.Pagination{Current: 9999, Limit: 10, Records: 25, Pages: 3}, env.Pagination)

	b, err := json.Marshal(env)
	s.Require().NoError(err)
	s.JSONEq(`{"pagination":{"current":9999,"limit":10,"records":25,"pages":3},"data":[]}`, string(b))
}

func (s *ScenarioTestSuite) TestSoftDeletedRowsAreHidden() {
	seedAppointments(s.store, 4, 4)
	s.store.Insert("appointments", search.Row{
		"id":           "appt-deleted",
		"status":       "scheduled",
		"scheduled_at": time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		"deleted_at":   time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC),
	})

	env, err := s.searcher.Search(s.ctx, search.SearchRequest{
		Filters: map[string]interface{}{"status": "scheduled"},
	})
	s.Require().NoError(err)
	s.Equal(2, env.Pagination.Records)
	for _, a := range env.Data {
		s.NotEqual("appt-deleted", a.ID)
	}
}

func (s *ScenarioTestSuite) TestHugePageIsEmpty() {
	seedAppointments(s.store, 25, 0)

	env, err := s.searcher.Search(s.ctx, search.SearchRequest{Page: (1 << 60) + 1, Limit: 8})
	s.Require().NoError(err)
	s.Empty(env.Data)
	s.Equal(25, env.Pagination.Records)

	rows, err := s.store.Fetch(s.ctx, search.Query{Table: "appointments", Bounds: search.PageBounds{Offset: -8, Limit: 8}})
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *ScenarioTestSuite) TestInvalidSortFallsBack() {
	seedAppointments(s.store, 25, 5)

	omitted, err := s.searcher.Search(s.ctx, search.SearchRequest{Limit: 25})
	s.Require().NoError(err)

	for i := 0; i < 2; i++ {
		invalid, err := s.searcher.Search(s.ctx, search.SearchRequest{
			Limit: 25,
			Sort:  search.SortDirective{Field: "nonexistent_field", Direction: "asc"},
		})
		s.Require().NoError(err)
		s.Equal(omitted.Data, invalid.Data)
	}

	// default is scheduled_at desc
	s.Equal("appt-24", omitted.Data[0].ID)
}

func (s *ScenarioTestSuite) TestUnknownFieldMakesNoCalls() {
	ds := mocks.NewDataSource(s.T())
	searcher, err := appointment.NewSearcher(ds)
	s.Require().NoError(err)

	_, err = searcher.Search(s.ctx, search.SearchRequest{
		Filters: map[string]interface{}{"internal_secret": "x"},
	})
	s.ErrorAs(err, new(search.InvalidFilterFieldError))
	s.Empty(ds.Calls)
}

func (s *ScenarioTestSuite) TestPaginationMonotonicity() {
	seedAppointments(s.store, 25, 0)

	seen := map[string]bool{}
	prevOffset := -1
	for page := 1; page <= 4; page++ {
		bounds := search.Paginate(page, 7, search.PageConfig{})
		s.Greater(bounds.Offset, prevOffset)
		prevOffset = bounds.Offset

		env, err := s.searcher.Search(s.ctx, search.SearchRequest{Page: page, Limit: 7})
		s.Require().NoError(err)
		s.LessOrEqual(len(env.Data), 7)
		for _, a := range env.Data {
			s.False(seen[a.ID])
			seen[a.ID] = true
		}
	}
	s.Len(seen, 25)
}

func (s *ScenarioTestSuite) TestNullColumnsAreOmitted() {
	seedAppointments(s.store, 5, 0)

	env, err := s.searcher.Search(s.ctx, search.SearchRequest{
		Sort: search.SortDirective{Field: "scheduled_at", Direction: "asc"},
	})
	s.Require().NoError(err)
	s.Require().NotEmpty(env.Data)

	// appt-00 has no reason
	b, err := json.Marshal(env.Data[0])
	s.Require().NoError(err)
	var got map[string]interface{}
	s.Require().NoError(json.Unmarshal(b, &got))
	s.NotContains(got, "reason")
	s.NotContains(got, "internal_notes")
	s.NotContains(got, "deleted_at")
	s.Equal("2023-01-01T08:00:00.000Z", got["scheduled_at"])
}

func TestScenarios(t *testing.T) {
	suite.Run(t, &ScenarioTestSuite{})
}

func TestNullFilterMatchesOmitted(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for i, name := range []string{"Ada", "Grace", "Linus", "Ken"} {
		store.Insert("candidates", search.Row{
			"id":             fmt.Sprintf("c%d", i),
			"job_posting_id": uuid.NewString(),
			"name":           name,
			"email":          name + "@example.com",
			"stage":          "applied",
			"applied_at":     time.Date(2023, 6, i+1, 0, 0, 0, 0, time.UTC),
			"resume_token":   "secret",
		})
	}
	searcher, err := candidate.NewSearcher(store)
	require.NoError(t, err)

	compiler := search.NewCompiler(candidate.Whitelist)
	withNull := search.SearchRequest{Filters: map[string]interface{}{"name": nil, "stage": "applied"}}
	omitted := search.SearchRequest{Filters: map[string]interface{}{"stage": "applied"}}

	treeNull, err := compiler.Compile(withNull)
	require.NoError(t, err)
	treeOmitted, err := compiler.Compile(omitted)
	require.NoError(t, err)
	if diff := cmp.Diff(treeOmitted, treeNull); diff != "" {
		t.Errorf("predicate trees differ (-omitted +null):\n%s", diff)
	}

	envNull, err := searcher.Search(ctx, withNull)
	require.NoError(t, err)
	envOmitted, err := searcher.Search(ctx, omitted)
	require.NoError(t, err)
	assert.Equal(t, envOmitted, envNull)
	assert.Len(t, envNull.Data, 4)
}

func TestStoreOperators(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.Insert("tasks",
		search.Row{"id": "t1", "title": "Fix Login", "estimate_hours": json.Number("2.5"), "due_date": "2023-07-01"},
		search.Row{"id": "t2", "title": "Write docs", "estimate_hours": 8.0, "due_date": "2023-08-01"},
		search.Row{"id": "t3", "title": "login audit", "estimate_hours": nil},
	)

	count := func(tree search.PredicateTree) int {
		n, err := store.Count(ctx, search.Query{Table: "tasks", Predicates: tree})
		require.NoError(t, err)
		return n
	}

	assert.Equal(t, 3, count(search.PredicateTree{}))
	assert.Equal(t, 2, count(search.PredicateTree{Predicates: []search.Predicate{
		{Column: "title", Op: search.OpContainsFold, Value: "LOGIN"},
	}}))
	assert.Equal(t, 0, count(search.PredicateTree{Predicates: []search.Predicate{
		{Column: "title", Op: search.OpContains, Value: "LOGIN"},
	}}))
	assert.Equal(t, 1, count(search.PredicateTree{Predicates: []search.Predicate{
		{Column: "estimate_hours", Op: search.OpGTE, Value: 3.0},
	}}))
	assert.Equal(t, 1, count(search.PredicateTree{Predicates: []search.Predicate{
		{Column: "due_date", Op: search.OpLTE, Value: time.Date(2023, 7, 15, 0, 0, 0, 0, time.UTC)},
	}}))
	assert.Equal(t, 2, count(search.PredicateTree{Predicates: []search.Predicate{
		{Column: "id", Op: search.OpIn, Value: []string{"t1", "t3"}},
	}}))
	assert.Equal(t, 1, count(search.PredicateTree{Text: &search.TextMatch{
		Columns: []string{"title"}, Term: "docs", Fold: true,
	}}))

	t.Run("should sort nulls last when ascending", func(t *testing.T) {
		rows, err := store.Fetch(ctx, search.Query{
			Table:   "tasks",
			Key:     "id",
			Columns: []string{"id"},
			Sort:    search.SortKey{Column: "estimate_hours", Direction: search.Ascending},
			Bounds:  search.PageBounds{Limit: 10, Page: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, []search.Row{{"id": "t1"}, {"id": "t2"}, {"id": "t3"}}, rows)
	})

	t.Run("should honor a canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.Fetch(canceled, search.Query{Table: "tasks"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"appointments": [
			{"id": "a1", "status": "scheduled", "scheduled_at": "2023-01-01T10:00:00Z"},
			{"id": "a2", "status": "completed", "scheduled_at": "2023-01-02T10:00:00Z"}
		],
		"tasks": [{"id": "t1", "title": "x"}]
	}`), 0o600))

	store, err := memory.NewFromConfig(memory.Config{FixturePath: path})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"appointments": 2, "tasks": 1}, store.Tables())

	_, err = memory.NewFromConfig(memory.Config{FixturePath: filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)

	empty, err := memory.NewFromConfig(memory.Config{})
	require.NoError(t, err)
	assert.Empty(t, empty.Tables())
}
