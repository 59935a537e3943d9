package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goto/sift/core/search"
)

type Config struct {
	FixturePath string `mapstructure:"fixture_path" yaml:"fixture_path" default:""`
}

// Store keeps rows per table in process and evaluates compiled queries over
// them. Comparisons follow SQL semantics: a NULL column never satisfies a
// predicate.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]search.Row
}

func New() *Store {
	return &Store{tables: map[string][]search.Row{}}
}

// NewFromConfig returns an empty store, or one seeded from cfg.FixturePath.
func NewFromConfig(cfg Config) (*Store, error) {
	s := New()
	if cfg.FixturePath == "" {
		return s, nil
	}
	if err := s.LoadFixture(cfg.FixturePath); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFixture reads a JSON object of table name to list of rows.
func (s *Store) LoadFixture(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var fixture map[string][]map[string]interface{}
	if err := dec.Decode(&fixture); err != nil {
		return fmt.Errorf("decode fixture %q: %w", path, err)
	}

	for table, rows := range fixture {
		for _, row := range rows {
			s.Insert(table, search.Row(row))
		}
	}
	return nil
}

func (s *Store) Insert(table string, rows ...search.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		cp := make(search.Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		s.tables[table] = append(s.tables[table], cp)
	}
}

// Tables returns table names with their row counts.
func (s *Store) Tables() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.tables))
	for name, rows := range s.tables {
		out[name] = len(rows)
	}
	return out
}

func (s *Store) Count(ctx context.Context, q search.Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.tables[q.Table] {
		if matchTree(r, q.Predicates) {
			n++
		}
	}
	return n, nil
}

func (s *Store) Fetch(ctx context.Context, q search.Query) ([]search.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var matched []search.Row
	for _, r := range s.tables[q.Table] {
		if matchTree(r, q.Predicates) {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if c := compareForSort(matched[i][q.Sort.Column], matched[j][q.Sort.Column], q.Sort.Direction); c != 0 {
			return c < 0
		}
		if q.Key == "" || q.Key == q.Sort.Column {
			return false
		}
		return compareForSort(matched[i][q.Key], matched[j][q.Key], search.Ascending) < 0
	})

	start := q.Bounds.Offset
	if start < 0 || start >= len(matched) {
		return nil, nil
	}
	end := start + q.Bounds.Limit
	if q.Bounds.Limit < 0 || end < start || end > len(matched) {
		end = len(matched)
	}

	out := make([]search.Row, 0, end-start)
	for _, r := range matched[start:end] {
		out = append(out, project(r, q.Columns))
	}
	return out, nil
}

func project(r search.Row, columns []string) search.Row {
	out := make(search.Row, len(columns))
	for _, col := range columns {
		if v, ok := r[col]; ok {
			out[col] = v
		}
	}
	return out
}

func matchTree(r search.Row, tree search.PredicateTree) bool {
	for _, p := range tree.Predicates {
		if !match(r, p) {
			return false
		}
	}
	if tree.Text == nil {
		return true
	}
	for _, col := range tree.Text.Columns {
		if s := r.String(col); s != nil && contains(*s, tree.Text.Term, tree.Text.Fold) {
			return true
		}
	}
	return false
}

func match(r search.Row, p search.Predicate) bool {
	if p.Op == search.OpIsNull {
		return r[p.Column] == nil
	}
	if r[p.Column] == nil {
		return false
	}

	switch p.Op {
	case search.OpEq:
		c, ok := compare(r[p.Column], p.Value)
		return ok && c == 0
	case search.OpIn:
		s := r.String(p.Column)
		set, _ := p.Value.([]string)
		for _, v := range set {
			if *s == v {
				return true
			}
		}
		return false
	case search.OpContains, search.OpContainsFold:
		s := r.String(p.Column)
		term, _ := p.Value.(string)
		return contains(*s, term, p.Op == search.OpContainsFold)
	case search.OpGTE:
		c, ok := compare(r[p.Column], p.Value)
		return ok && c >= 0
	case search.OpLTE:
		c, ok := compare(r[p.Column], p.Value)
		return ok && c <= 0
	}
	return false
}

func contains(s, term string, fold bool) bool {
	if fold {
		return strings.Contains(strings.ToLower(s), strings.ToLower(term))
	}
	return strings.Contains(s, term)
}

// compare orders a stored value against a predicate value of the type the
// compiler produced. ok is false when the two cannot be compared.
func compare(stored, want interface{}) (c int, ok bool) {
	switch w := want.(type) {
	case time.Time:
		t, ok := toTime(stored)
		if !ok {
			return 0, false
		}
		return compareTime(t, w), true
	case float64:
		f, ok := toFloat(stored)
		if !ok {
			return 0, false
		}
		return compareFloat(f, w), true
	case int64:
		f, ok := toFloat(stored)
		if !ok {
			return 0, false
		}
		return compareFloat(f, float64(w)), true
	case bool:
		b, ok := stored.(bool)
		if !ok {
			return 0, false
		}
		if b == w {
			return 0, true
		}
		return 1, true
	case string:
		s := search.Row{"v": stored}.String("v")
		return strings.Compare(*s, w), true
	}
	return 0, false
}

// compareForSort puts NULLs last when ascending and first when descending,
// the way postgres does by default.
func compareForSort(a, b interface{}, dir search.Direction) int {
	var c int
	switch {
	case a == nil && b == nil:
		c = 0
	case a == nil:
		c = 1
	case b == nil:
		c = -1
	default:
		c = compareAny(a, b)
	}
	if dir == search.Descending {
		return -c
	}
	return c
}

func compareAny(a, b interface{}) int {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return compareFloat(fa, fb)
		}
	}
	if ta, ok := toTime(a); ok {
		if tb, ok := toTime(b); ok {
			return compareTime(ta, tb)
		}
	}
	sa := search.Row{"v": a}.String("v")
	sb := search.Row{"v": b}.String("v")
	return strings.Compare(*sa, *sb)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil && !math.IsNaN(f)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil && !math.IsNaN(f)
	}
	return 0, false
}

func toTime(v interface{}) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	normalized := search.Row{"v": s}.Time("v")
	if normalized == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(search.TimeLayout, *normalized)
	return t, err == nil
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
