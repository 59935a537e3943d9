package search_test

import (
	"math"
	"testing"

	"github.com/goto/sift/core/search"
	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	cfg := search.PageConfig{DefaultLimit: 10, MaxLimit: 100}

	type testCase struct {
		Description string
		Page, Limit int
		Expected    search.PageBounds
	}

	testCases := []testCase{
		{"should use defaults when both are absent", 0, 0, search.PageBounds{Offset: 0, Limit: 10, Page: 1}},
		{"should treat a negative page as the first", -4, 5, search.PageBounds{Offset: 0, Limit: 5, Page: 1}},
		{"should compute the offset from page and limit", 3, 25, search.PageBounds{Offset: 50, Limit: 25, Page: 3}},
		{"should clamp the limit to the maximum", 2, 1000, search.PageBounds{Offset: 100, Limit: 100, Page: 2}},
		{"should not bound ordinary pages", 500, 10, search.PageBounds{Offset: 4990, Limit: 10, Page: 500}},
		{"should cap huge pages", (1 << 60) + 1, 8, search.PageBounds{Offset: (math.MaxInt32 - 1) * 8, Limit: 8, Page: math.MaxInt32}},
	}

	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			got := search.Paginate(tc.Page, tc.Limit, cfg)
			assert.Equal(t, tc.Expected, got)
			assert.Equal(t, (got.Page-1)*got.Limit, got.Offset)
		})
	}

	t.Run("should fall back to package defaults on an empty config", func(t *testing.T) {
		got := search.Paginate(0, 0, search.PageConfig{})
		assert.Equal(t, search.DefaultLimit, got.Limit)
	})

	t.Run("should keep the offset from overflowing with a huge limit", func(t *testing.T) {
		got := search.Paginate(math.MaxInt32, math.MaxInt, search.PageConfig{MaxLimit: math.MaxInt})
		assert.Equal(t, search.PageBounds{Offset: math.MaxInt, Limit: math.MaxInt, Page: 2}, got)
	})

	t.Run("should cap a default larger than the maximum", func(t *testing.T) {
		got := search.Paginate(1, 0, search.PageConfig{DefaultLimit: 50, MaxLimit: 20})
		assert.Equal(t, 20, got.Limit)
	})
}

func TestPageCount(t *testing.T) {
	cases := []struct{ records, limit, pages int }{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{95, 25, 4},
		{5, 0, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.pages, search.PageCount(c.records, c.limit), "records=%d limit=%d", c.records, c.limit)
	}
}
