package handlersv1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goto/sift/core/search"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const maxBodyBytes = 1 << 20

// SearchByBody serves POST /v1/{entity}/search with a flat JSON object body.
func (server *APIServer) SearchByBody(mux *runtime.ServeMux) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
		var req search.SearchRequest
		err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			server.writeError(mux, w, r, status.Error(codes.InvalidArgument, bodyParserErrorMsg(err)))
			return
		}
		server.serveSearch(mux, w, r, pathParams["entity"], req)
	}
}

// SearchByQuery serves GET /v1/{entity} where filters are given as
// filter.<field> query parameters.
func (server *APIServer) SearchByQuery(mux *runtime.ServeMux) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
		server.serveSearch(mux, w, r, pathParams["entity"], search.FromValues(r.URL.Query()))
	}
}

func (server *APIServer) serveSearch(mux *runtime.ServeMux, w http.ResponseWriter, r *http.Request, entity string, req search.SearchRequest) {
	searcher, ok := server.searchers[entity]
	if !ok {
		server.writeError(mux, w, r, status.Errorf(codes.NotFound, "unknown entity %q", entity))
		return
	}

	metric := server.statsdReporter.Incr("searchRequest").Tag("entity", entity)
	page, err := searcher.SearchPage(r.Context(), req)
	defer metric.Result(err).Publish()
	if err != nil {
		server.writeError(mux, w, r, server.searchError(entity, err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(page); err != nil {
		server.logger.Error("error writing search response", "entity", entity, "err", err)
	}
}

func (server *APIServer) searchError(entity string, err error) error {
	if search.IsClientError(err) {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	var dsErr search.DataSourceError
	if errors.As(err, &dsErr) {
		return internalServerError(server.logger, fmt.Sprintf("error searching %s: %s", entity, dsErr))
	}
	return internalServerError(server.logger, fmt.Sprintf("error searching %s: %s", entity, err))
}

func (server *APIServer) writeError(mux *runtime.ServeMux, w http.ResponseWriter, r *http.Request, err error) {
	_, outbound := runtime.MarshalerForRequest(mux, r)
	runtime.HTTPError(r.Context(), mux, outbound, w, r, err)
}
