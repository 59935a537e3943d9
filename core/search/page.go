package search

import "math"

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type PageConfig struct {
	DefaultLimit int `mapstructure:"default_limit" yaml:"default_limit" default:"10"`
	MaxLimit     int `mapstructure:"max_limit" yaml:"max_limit" default:"100"`
}

func (c PageConfig) normalize() PageConfig {
	if c.MaxLimit < 1 {
		c.MaxLimit = MaxLimit
	}
	if c.DefaultLimit < 1 {
		c.DefaultLimit = DefaultLimit
	}
	if c.DefaultLimit > c.MaxLimit {
		c.DefaultLimit = c.MaxLimit
	}
	return c
}

// PageBounds are the resolved paging parameters of one request.
// Offset is always (Page-1)*Limit.
type PageBounds struct {
	Offset int
	Limit  int
	Page   int
}

// Paginate resolves page and limit, where values below 1 mean absent. Asking
// past the last page is a legal, empty read. Pages are capped at maxPageValue
// and wherever (page-1)*limit would no longer fit in an int.
func Paginate(page, limit int, cfg PageConfig) PageBounds {
	cfg = cfg.normalize()

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = cfg.DefaultLimit
	}
	if limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}
	if page > maxPageValue {
		page = maxPageValue
	}
	if page-1 > math.MaxInt/limit {
		page = math.MaxInt/limit + 1
	}

	return PageBounds{
		Offset: (page - 1) * limit,
		Limit:  limit,
		Page:   page,
	}
}

// PageCount is ceil(records/limit), and 0 when there are no records.
func PageCount(records, limit int) int {
	if records <= 0 || limit <= 0 {
		return 0
	}
	return (records + limit - 1) / limit
}
