package chi

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/docassist/internal/domain/search/failure"
	"github.com/kailas-cloud/docassist/internal/domain/search/result"
)

type searchRequest struct {
	Query  string `json:"query"`
	Offset int    `json:"offset"`
}

// searchResponse is a search result plus its presentation hints.
type searchResponse struct {
	result.Result
	Failure failure.Kind `json:"failure"`
	Soft    bool         `json:"soft,omitempty"`
	HasMore bool         `json:"has_more"`
}

func newSearchResponse(r result.Result) searchResponse {
	kind := failure.Classify(r)
	return searchResponse{Result: r, Failure: kind, Soft: kind.IsSoft(), HasMore: r.HasMore()}
}

// statusFor maps a search outcome to an HTTP status. Failures still carry the full result body.
func statusFor(r result.Result) int {
	if r.Success {
		return http.StatusOK
	}
	switch r.Category {
	case result.CategoryValidation:
		return http.StatusBadRequest
	case result.CategoryInFlight, result.CategoryCancelled:
		return http.StatusConflict
	case result.CategoryTimedOut:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	c := s.clients.get(clientID(r))
	res := c.search.Search(r.Context(), req.Query, req.Offset)
	writeJSON(w, statusFor(res), newSearchResponse(res))
}

// LoadMore handles POST /v1/search/more.
func (s *Server) LoadMore(w http.ResponseWriter, r *http.Request) {
	c := s.clients.get(clientID(r))
	res := c.search.LoadMore(r.Context())
	writeJSON(w, statusFor(res), newSearchResponse(res))
}

// SearchState handles GET /v1/search/state.
func (s *Server) SearchState(w http.ResponseWriter, r *http.Request) {
	c := s.clients.get(clientID(r))
	st := c.search.State()
	writeJSON(w, http.StatusOK, newSearchResponse(st))
}

// CancelSearch handles DELETE /v1/search.
func (s *Server) CancelSearch(w http.ResponseWriter, r *http.Request) {
	s.clients.get(clientID(r)).search.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

type historyResponse struct {
	Items []string `json:"items"`
}

// ListHistory handles GET /v1/history.
func (s *Server) ListHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, historyResponse{Items: s.history.Load(r.Context())})
}

// ClearHistory handles DELETE /v1/history.
func (s *Server) ClearHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, historyResponse{Items: s.history.Clear(r.Context())})
}

// RemoveHistory handles DELETE /v1/history/{query}.
func (s *Server) RemoveHistory(w http.ResponseWriter, r *http.Request) {
	q, err := url.PathUnescape(chi.URLParam(r, "query"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid query path segment")
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Items: s.history.Remove(r.Context(), q)})
}

// ClearCache handles DELETE /v1/cache.
func (s *Server) ClearCache(w http.ResponseWriter, _ *http.Request) {
	s.cache.Clear()
	w.WriteHeader(http.StatusNoContent)
}
