package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	queryorch "github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/logger"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/config"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/metrics"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

// Server is the HTTP surface of the engine.
type Server struct {
	client *queryorch.QueryOrchClient
	router chi.Router
}

// QueryRequest is the body of POST /api/v1/query and /api/v1/classify.
type QueryRequest struct {
	Query    string `json:"query"`
	TenantID string `json:"tenantId,omitempty"`
}

// ClassifyResponse is the body returned by /api/v1/classify.
type ClassifyResponse struct {
	Retrieval bool   `json:"retrieval"`
	Chart     bool   `json:"chart"`
	Direct    bool   `json:"direct"`
	Rationale string `json:"rationale"`
	Source    string `json:"source"`
}

// SearchResponse is the body returned by the tenant search endpoint.
type SearchResponse struct {
	TenantID  string                     `json:"tenantId"`
	Strategy  string                     `json:"strategy"`
	Documents []schema.RetrievedDocument `json:"documents"`
}

// NewServer wires routes over client.
func NewServer(client *queryorch.QueryOrchClient) *Server {
	metrics.Register()
	s := &Server{client: client}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/api/v1/health", s.handleHealth)
	r.Post("/api/v1/query", s.handleQuery)
	r.Post("/api/v1/classify", s.handleClassify)
	r.Route("/api/v1/tenants/{tenantId}", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
	})
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger logs one line per request through the process logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Infof("http: %s %s status=%d request_id=%s elapsed_ms=%d",
			r.Method, r.URL.Path, ww.Status(), middleware.GetReqID(r.Context()), time.Since(start).Milliseconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cfg := s.client.Config()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"version":       queryorch.Version,
		"llm":           cfg.LLM.Provider,
		"docstore":      s.client.Store().Type(),
		"defaultTenant": cfg.Server.DefaultTenant,
	})
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (QueryRequest, bool) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return req, false
	}
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, "query is required", nil)
		return req, false
	}
	return req, true
}

// tenantOr applies the configured default tenant to an empty or blank id.
func (s *Server) tenantOr(id string) schema.Tenant {
	t := schema.NewTenant(id)
	if t.ID == "" {
		t = schema.NewTenant(s.client.Config().Server.DefaultTenant)
	}
	return t
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	q := schema.NewQuery(req.Query, s.tenantOr(req.TenantID))
	resp, err := s.client.Ask(r.Context(), q)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, schema.ErrMissingTenant) {
			status = http.StatusBadRequest
		}
		respondJSON(w, status, schema.ErrorResponse(err))
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	d := s.client.Classify(r.Context(), req.Query)
	respondJSON(w, http.StatusOK, ClassifyResponse{
		Retrieval: d.WantsRetrieval,
		Chart:     d.WantsChart,
		Direct:    d.WantsDirect,
		Rationale: d.Rationale,
		Source:    d.Source,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	tenant := schema.NewTenant(chi.URLParam(r, "tenantId"))
	if tenant.ID == "" {
		respondError(w, http.StatusBadRequest, "tenantId is required", schema.ErrMissingTenant)
		return
	}
	text := r.URL.Query().Get("q")
	if text == "" {
		respondError(w, http.StatusBadRequest, "q is required", nil)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > config.MaxFetchLimit {
			respondError(w, http.StatusBadRequest, "limit must be between 0 and "+strconv.Itoa(config.MaxFetchLimit), err)
			return
		}
		limit = n
	}
	res, err := s.client.Search(r.Context(), tenant, text, limit)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, schema.ErrMissingTenant) {
			status = http.StatusBadRequest
		}
		respondError(w, status, "search failed", err)
		return
	}
	respondJSON(w, http.StatusOK, SearchResponse{
		TenantID:  tenant.ID,
		Strategy:  string(res.Strategy),
		Documents: res.Documents,
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warnf("http: encode response failed: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
