package handlersv1

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/goto/salt/log"
	"github.com/goto/sift/core/search"
	"github.com/goto/sift/pkg/statsd"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

//go:generate mockery --name=Searcher -r --case underscore --with-expecter --structname Searcher --filename searcher.go --output=./mocks

// Searcher answers search requests for one entity.
type Searcher interface {
	EntityName() string
	SearchPage(ctx context.Context, req search.SearchRequest) (interface{}, error)
}

type APIServer struct {
	logger         log.Logger
	statsdReporter *statsd.Reporter
	searchers      map[string]Searcher
}

type Option func(*APIServer)

func WithStatsD(reporter *statsd.Reporter) Option {
	return func(s *APIServer) {
		s.statsdReporter = reporter
	}
}

func NewAPIServer(logger log.Logger, searchers []Searcher, opts ...Option) (*APIServer, error) {
	server := &APIServer{
		logger:    logger,
		searchers: make(map[string]Searcher, len(searchers)),
	}
	for _, s := range searchers {
		name := s.EntityName()
		if _, ok := server.searchers[name]; ok {
			return nil, fmt.Errorf("duplicate searcher for %q", name)
		}
		server.searchers[name] = s
	}
	for _, opt := range opts {
		opt(server)
	}
	return server, nil
}

// Entities lists the names of the searchable entities in lexical order.
func (server *APIServer) Entities() []string {
	names := make([]string, 0, len(server.searchers))
	for name := range server.searchers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterHandlers mounts the search routes on the gateway mux.
func (server *APIServer) RegisterHandlers(mux *runtime.ServeMux) error {
	routes := []struct {
		method  string
		pattern string
		handler func(mux *runtime.ServeMux) runtime.HandlerFunc
	}{
		{method: http.MethodPost, pattern: "/v1/{entity}/search", handler: server.SearchByBody},
		{method: http.MethodGet, pattern: "/v1/{entity}", handler: server.SearchByQuery},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.pattern, r.handler(mux)); err != nil {
			return fmt.Errorf("register %s %s: %w", r.method, r.pattern, err)
		}
	}
	return nil
}

func internalServerError(logger log.Logger, msg string) error {
	ref := time.Now().Unix()

	logger.Error(msg, "ref", ref)
	return status.Error(codes.Internal, fmt.Sprintf(
		"%s - ref (%d)",
		http.StatusText(http.StatusInternalServerError),
		ref,
	))
}

func bodyParserErrorMsg(err error) string {
	return fmt.Sprintf("error parsing request body: %v", err)
}
