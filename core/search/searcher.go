package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/goto/salt/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Entity binds a summary type to its storage and search declarations.
type Entity[T any] struct {
	Name        string
	Table       string
	Key         string
	Columns     []string
	Whitelist   *Whitelist
	DefaultSort SortKey
	MapRow      RowMapper[T]

	// Scope is applied to every query of the entity, ahead of the filters of
	// the request. It is never exposed through the whitelist.
	Scope []Predicate
}

func (e Entity[T]) validate() error {
	if e.Name == "" {
		return errors.New("entity name is empty")
	}
	if e.Whitelist == nil {
		return fmt.Errorf("entity %q: %w", e.Name, ErrNilWhitelist)
	}
	if e.MapRow == nil {
		return fmt.Errorf("entity %q: row mapper is nil", e.Name)
	}
	if len(e.Columns) == 0 {
		return fmt.Errorf("entity %q: no summary columns", e.Name)
	}
	return nil
}

// Searcher answers search requests for one entity.
type Searcher[T any] struct {
	entity     Entity[T]
	ds         DataSource
	compiler   *Compiler
	logger     log.Logger
	pageConfig PageConfig
	concurrent bool

	searchCounter metric.Int64Counter
}

type SearcherOption func(*searcherOptions)

type searcherOptions struct {
	logger        log.Logger
	pageConfig    PageConfig
	caseSensitive bool
	sequential    bool
}

func WithLogger(logger log.Logger) SearcherOption {
	return func(o *searcherOptions) {
		o.logger = logger
	}
}

func WithPageConfig(cfg PageConfig) SearcherOption {
	return func(o *searcherOptions) {
		o.pageConfig = cfg
	}
}

func WithCaseSensitive(enabled bool) SearcherOption {
	return func(o *searcherOptions) {
		o.caseSensitive = enabled
	}
}

// WithSequentialReads makes the count and the fetch run one after the other
// instead of concurrently.
func WithSequentialReads() SearcherOption {
	return func(o *searcherOptions) {
		o.sequential = true
	}
}

func NewSearcher[T any](entity Entity[T], ds DataSource, opts ...SearcherOption) (*Searcher[T], error) {
	if err := entity.validate(); err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, ErrNilDataSource
	}

	o := searcherOptions{logger: log.NewNoop()}
	for _, opt := range opts {
		opt(&o)
	}
	if entity.Table == "" {
		entity.Table = entity.Name
	}
	if entity.Key == "" {
		entity.Key = "id"
	}

	searchCounter, err := otel.Meter("github.com/goto/sift/core/search").
		Int64Counter("sift.search.operation")
	if err != nil {
		otel.Handle(err)
	}

	return &Searcher[T]{
		entity:        entity,
		ds:            ds,
		compiler:      NewCompiler(entity.Whitelist, CompileWithCaseSensitive(o.caseSensitive)),
		logger:        o.logger,
		pageConfig:    o.pageConfig.normalize(),
		concurrent:    !o.sequential,
		searchCounter: searchCounter,
	}, nil
}

func (s *Searcher[T]) EntityName() string { return s.entity.Name }

// Search compiles req, resolves its ordering and page, and reads the page.
// Invalid filters are reported before the data source is touched.
func (s *Searcher[T]) Search(ctx context.Context, req SearchRequest) (env Envelope[T], err error) {
	defer func() {
		s.instrumentSearch(ctx, err)
	}()

	tree, err := s.compiler.Compile(req)
	if err != nil {
		return Envelope[T]{}, err
	}
	if len(s.entity.Scope) > 0 {
		tree.Predicates = append(append([]Predicate(nil), s.entity.Scope...), tree.Predicates...)
	}

	q := Query{
		Table:      s.entity.Table,
		Key:        s.entity.Key,
		Columns:    s.entity.Columns,
		Predicates: tree,
		Sort:       ResolveSort(req.Sort, s.entity.Whitelist, s.entity.DefaultSort),
		Bounds:     Paginate(req.Page, req.Limit, s.pageConfig),
	}
	s.logger.Debug("search query compiled",
		"entity", s.entity.Name,
		"predicates", len(tree.Predicates),
		"sort", q.Sort.String(),
		"page", q.Bounds.Page,
		"limit", q.Bounds.Limit,
	)

	return Assemble(ctx, s.ds, q, s.entity.MapRow, s.concurrent)
}

// SearchPage is Search for transports that do not know T.
func (s *Searcher[T]) SearchPage(ctx context.Context, req SearchRequest) (interface{}, error) {
	env, err := s.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (s *Searcher[T]) instrumentSearch(ctx context.Context, err error) {
	if s.searchCounter == nil {
		return
	}
	s.searchCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sift.entity", s.entity.Name),
		attribute.Bool("search.client_error", IsClientError(err)),
		attribute.Bool("operation.success", err == nil),
	))
}
