// Package chi serves the local docassist gateway: search, history, cache and chat relay.
package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	healthuc "github.com/kailas-cloud/docassist/internal/usecase/health"
)

// ClientIDHeader selects the per-caller orchestrator and conversation.
const ClientIDHeader = "X-Client-ID"

const (
	defaultClientID  = "default"
	maxClientIDLen   = 128
	maxRequestBody   = 64 << 10
	defaultIdleAfter = 30 * time.Minute
)

// ErrorCode is the machine-readable error code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-stream error.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// historyStore is the history surface the gateway needs (ISP).
type historyStore interface {
	Load(ctx context.Context) []string
	Remove(ctx context.Context, q string) []string
	Clear(ctx context.Context) []string
}

// cacheClearer drops cached search results.
type cacheClearer interface {
	Clear()
}

// Deps wires the gateway.
type Deps struct {
	Clients   ClientFactory
	History   historyStore
	Cache     cacheClearer
	Health    *healthuc.Service
	Logger    *zap.Logger
	IdleAfter time.Duration
}

// Server holds the gateway handlers.
type Server struct {
	clients *clients
	history historyStore
	cache   cacheClearer
	health  *healthuc.Service
	logger  *zap.Logger
}

// NewServer creates the gateway.
func NewServer(d Deps) *Server {
	idle := d.IdleAfter
	if idle <= 0 {
		idle = defaultIdleAfter
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		clients: newClients(d.Clients, idle),
		history: d.History,
		cache:   d.Cache,
		health:  d.Health,
		logger:  log,
	}
}

// Routes registers every gateway route on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Post("/search/more", s.LoadMore)
		r.Get("/search/state", s.SearchState)
		r.Delete("/search", s.CancelSearch)

		r.Get("/history", s.ListHistory)
		r.Delete("/history", s.ClearHistory)
		r.Delete("/history/{query}", s.RemoveHistory)

		r.Delete("/cache", s.ClearCache)

		r.Post("/chat/{mode}", s.Chat)
		r.Get("/chat", s.ChatTurns)
		r.Delete("/chat", s.ResetChat)
	})
}

// Handler returns a router with every route mounted, for tests and embedding.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}})
		return
	}
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// clientID returns the caller identity from the header, or the shared default.
func clientID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(ClientIDHeader))
	if id == "" || len(id) > maxClientIDLen {
		return defaultClientID
	}
	return id
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		return err //nolint:wrapcheck // surfaced to the client as-is
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
