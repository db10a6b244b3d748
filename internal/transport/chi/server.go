// Package chi is the HTTP transport: request decoding, error mapping and
// route registration for the routing API.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/routedex/internal/collector"
	"github.com/kailas-cloud/routedex/internal/domain"
	"github.com/kailas-cloud/routedex/internal/domain/routing"
	"github.com/kailas-cloud/routedex/internal/usecase/compare"
)

// errorCode is the machine-readable error code in error responses.
type errorCode string

const (
	codeBadRequest       errorCode = "bad_request"
	codeValidationFailed errorCode = "validation_failed"
	codeUnknownStrategy  errorCode = "unknown_strategy"
	codeProviderError    errorCode = "provider_error"
	codeProviderTimeout  errorCode = "provider_timeout"
	codeInternalError    errorCode = "internal_error"
)

// Router is the consumer interface for the routing orchestrator.
type Router interface {
	Route(ctx context.Context, query string, strategy routing.Strategy, label string) (routing.Decision, error)
}

// Comparer is the consumer interface for the comparison harness.
type Comparer interface {
	Compare(ctx context.Context, queries []string) (compare.Report, error)
}

// Stats is the consumer interface for the metrics collector.
type Stats interface {
	Snapshot(strategy routing.Strategy) collector.AggregateStats
	Reset()
}

// HealthChecker probes one dependency for the health endpoint.
type HealthChecker func(ctx context.Context) error

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API server.
type Server struct {
	router        Router
	comparer      Comparer
	stats         Stats
	checks        map[string]HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. checks maps dependency names to
// health probes for GET /health.
func NewServer(
	router Router,
	comparer Comparer,
	stats Stats,
	checks map[string]HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:   router,
		comparer: comparer,
		stats:    stats,
		checks:   checks,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrUnknownStrategy, http.StatusBadRequest, codeUnknownStrategy),
		sentinelHandler(domain.ErrProviderTimeout, http.StatusGatewayTimeout, codeProviderTimeout),
		sentinelHandler(domain.ErrProvider, http.StatusBadGateway, codeProviderError),
		sentinelHandler(domain.ErrConfiguration, http.StatusInternalServerError, codeInternalError),
	}
	return s
}

// Register mounts the API routes on r. The service endpoints live under
// /api/v1; /health and /metrics stay at the root so probes and scrapers
// bypass authentication.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/route", s.RouteQuery)
		r.Post("/compare", s.CompareStrategies)
		r.Get("/stats", s.GetStats)
		r.Delete("/stats", s.ResetStats)
	})
}

type routeRequest struct {
	Query    string `json:"query"`
	Strategy string `json:"strategy"`
	Label    string `json:"label,omitempty"`
}

// RouteQuery handles POST /api/v1/route.
func (s *Server) RouteQuery(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	strategy, err := routing.ParseStrategy(req.Strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeUnknownStrategy, err.Error())
		return
	}

	decision, err := s.router.Route(r.Context(), req.Query, strategy, req.Label)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

type compareRequest struct {
	Queries []string `json:"queries"`
}

// CompareStrategies handles POST /api/v1/compare.
func (s *Server) CompareStrategies(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	report, err := s.comparer.Compare(r.Context(), req.Queries)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

type statsResponse struct {
	Strategy string                   `json:"strategy,omitempty"`
	Stats    collector.AggregateStats `json:"stats"`
}

// GetStats handles GET /api/v1/stats. The optional strategy query parameter
// narrows the aggregate to one strategy; absent means all records.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("strategy")

	var strategy routing.Strategy
	if raw != "" {
		parsed, err := routing.ParseStrategy(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeUnknownStrategy, err.Error())
			return
		}
		strategy = parsed
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Strategy: raw,
		Stats:    s.stats.Snapshot(strategy),
	})
}

// ResetStats handles DELETE /api/v1/stats.
func (s *Server) ResetStats(w http.ResponseWriter, r *http.Request) {
	s.stats.Reset()
	w.WriteHeader(http.StatusNoContent)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy"}
	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
	}

	httpStatus := http.StatusOK
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			s.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			resp.Checks[name] = "unhealthy"
			resp.Status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "healthy"
	}

	writeJSON(w, httpStatus, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrUnknownStrategy,
		domain.ErrProviderTimeout,
		domain.ErrProvider,
		domain.ErrConfiguration,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
