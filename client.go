package queryorch

import (
	"context"
	"fmt"
	"time"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/chart"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/logger"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/config"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/direct"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/docstore"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/llm"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/merger"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/metrics"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/orchestrator"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/rag"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/retriever"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/router"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

const (
	REQUEST_STATUS_OK       = "ok"
	REQUEST_STATUS_DEGRADED = "degraded"
	REQUEST_STATUS_ERROR    = "error"
)

// QueryOrchClient classifies queries, runs the selected capabilities and
// merges their outputs.
type QueryOrchClient struct {
	config      *config.Config
	llmProvider llm.Provider
	store       docstore.Gateway
	router      router.Router
	retriever   *retriever.TenantRetriever
	orch        *orchestrator.Orchestrator
	merger      *merger.Merger
	timeout     time.Duration
}

// NewQueryOrchClient builds a client and its gateways from config.
func NewQueryOrchClient(cfg *config.Config) (*QueryOrchClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config, err: %w", err)
	}
	llmProvider, err := llm.NewLLMProvider(cfg.LLM, cfg.HTTP)
	if err != nil {
		return nil, fmt.Errorf("create llm provider failed, err: %w", err)
	}
	store, err := docstore.NewGateway(cfg.DocStore, cfg.HTTP)
	if err != nil {
		return nil, fmt.Errorf("create document store failed, err: %w", err)
	}
	return NewQueryOrchClientWith(cfg, llmProvider, store)
}

// NewQueryOrchClientWith builds a client over the given gateways.
func NewQueryOrchClientWith(cfg *config.Config, llmProvider llm.Provider, store docstore.Gateway) (*QueryOrchClient, error) {
	if llmProvider == nil {
		return nil, fmt.Errorf("llm provider not initialized")
	}
	if store == nil {
		return nil, fmt.Errorf("document store not initialized")
	}
	r, err := router.NewRouter(cfg.Classifier, llmProvider)
	if err != nil {
		return nil, fmt.Errorf("create router failed, err: %w", err)
	}

	ret := retriever.New(store, cfg.RAG)
	handlers := orchestrator.Handlers{
		Retrieval: rag.NewPipeline(ret, llmProvider, llm.OptionsFrom(cfg.RAG.CompletionConfig), cfg.RAG.MaxContextTokens),
		Chart:     chart.NewExtractor(llmProvider, llm.OptionsFrom(cfg.Chart)),
		Direct:    direct.NewAnswerer(llmProvider, llm.OptionsFrom(cfg.Direct)),
	}

	timeout := time.Duration(cfg.Orchestrator.RequestTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger.Infof("queryorch: llm=%s store=%s classifier=%s policy=%s timeout=%s",
		llmProvider.GetProviderType(), store.Type(), cfg.Classifier.Provider, cfg.Orchestrator.FailurePolicy, timeout)

	return &QueryOrchClient{
		config:      cfg,
		llmProvider: llmProvider,
		store:       store,
		router:      r,
		retriever:   ret,
		orch:        orchestrator.New(handlers),
		merger:      merger.New(cfg.Orchestrator.FailurePolicy),
		timeout:     timeout,
	}, nil
}

// Config returns the client's configuration.
func (c *QueryOrchClient) Config() *config.Config { return c.config }

// Store returns the document store gateway.
func (c *QueryOrchClient) Store() docstore.Gateway { return c.store }

// Ask answers q. The whole request, classification included, is bounded by
// orchestrator.request_timeout_ms. Callers render an error with
// schema.ErrorResponse.
func (c *QueryOrchClient) Ask(ctx context.Context, q schema.Query) (schema.Response, error) {
	if q.Tenant.ID == "" {
		return schema.Response{}, schema.ErrMissingTenant
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	qm := metrics.NewQueryMetrics(q.ID, q.Tenant.ID, q.Text)
	ctx = metrics.WithQueryMetrics(ctx, qm)
	start := time.Now()
	log := logger.WithContext(map[string]interface{}{"query_id": q.ID, "tenant": q.Tenant.ID})

	d := c.router.Route(ctx, q.Text)
	qm.Decision = d.Label()
	qm.DecisionSource = d.Source
	qm.Rationale = d.Rationale
	qm.ClassifyMs = time.Since(start).Milliseconds()
	log.Infof("decision %s from %s", d.Label(), d.Source)

	outcomes := c.orch.Run(ctx, q, d)
	resp, err := c.merger.Combine(outcomes)

	qm.TotalLatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		qm.ErrorMsg = err.Error()
		qm.Log()
		metrics.IncRequest(REQUEST_STATUS_ERROR)
		log.Errorf("request failed: %v", err)
		return schema.Response{}, fmt.Errorf("process query failed, err: %w", err)
	}
	qm.Success = true
	qm.Degraded = resp.Degraded
	qm.Log()
	if resp.Degraded {
		metrics.IncRequest(REQUEST_STATUS_DEGRADED)
	} else {
		metrics.IncRequest(REQUEST_STATUS_OK)
	}
	return resp, nil
}

// Classify returns the capability decision for text without running anything.
func (c *QueryOrchClient) Classify(ctx context.Context, text string) schema.Decision {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.router.Route(ctx, text)
}

// Search runs the tenant retrieval strategy (keyword search, then full scan).
// A positive limit truncates the result.
func (c *QueryOrchClient) Search(ctx context.Context, tenant schema.Tenant, text string, limit int) (retriever.Result, error) {
	if tenant.ID == "" {
		return retriever.Result{}, schema.ErrMissingTenant
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	res, err := c.retriever.Retrieve(ctx, tenant, text)
	if err != nil {
		return retriever.Result{}, err
	}
	if limit > 0 && len(res.Documents) > limit {
		res.Documents = res.Documents[:limit]
	}
	return res, nil
}
