package retriever

import (
	"context"
	"fmt"
	"time"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/logger"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/config"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/docstore"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/metrics"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

// Strategy names how documents were obtained.
type Strategy string

const (
	StrategyPrimary  Strategy = "primary"
	StrategyFallback Strategy = "fallback"
	StrategyEmpty    Strategy = "empty"
)

const (
	DefaultTopK          = 5
	DefaultFallbackLimit = config.MaxFetchLimit
)

// Result is the outcome of a retrieval.
type Result struct {
	Documents []schema.RetrievedDocument
	Strategy  Strategy
}

// TenantRetriever runs a keyword search within one tenant and, when that
// finds nothing, reads the tenant's documents without a relevance filter.
type TenantRetriever struct {
	Store         docstore.Gateway
	TopK          int
	FallbackLimit int
}

// New creates a retriever over store with the configured limits.
func New(store docstore.Gateway, cfg config.RAGConfig) *TenantRetriever {
	return &TenantRetriever{Store: store, TopK: cfg.TopK, FallbackLimit: cfg.FallbackLimit}
}

func (r *TenantRetriever) topK() int {
	if r.TopK <= 0 {
		return DefaultTopK
	}
	return r.TopK
}

func (r *TenantRetriever) fallbackLimit() int {
	if r.FallbackLimit <= 0 || r.FallbackLimit > config.MaxFetchLimit {
		return DefaultFallbackLimit
	}
	return r.FallbackLimit
}

// Retrieve returns the tenant's documents for query. Gateway errors are
// returned as is; an empty result is not an error.
func (r *TenantRetriever) Retrieve(ctx context.Context, tenant schema.Tenant, query string) (Result, error) {
	if r.Store == nil {
		return Result{}, fmt.Errorf("document store not configured")
	}
	start := time.Now()
	docs, err := r.Store.SearchKeyword(ctx, tenant, query, r.topK())
	if err != nil {
		return Result{}, fmt.Errorf("keyword search failed, err: %w", err)
	}
	res := Result{Documents: docs, Strategy: StrategyPrimary}

	if len(docs) == 0 {
		logger.Infof("retriever: keyword search found nothing for tenant %s, fetching all", tenant.ID)
		docs, err = r.Store.FetchAll(ctx, tenant, r.fallbackLimit())
		if err != nil {
			return Result{}, fmt.Errorf("fetch all failed, err: %w", err)
		}
		res = Result{Documents: docs, Strategy: StrategyFallback}
		if len(docs) == 0 {
			res.Strategy = StrategyEmpty
		}
	}
	if res.Documents == nil {
		res.Documents = []schema.RetrievedDocument{}
	}

	logger.Infof("retriever: tenant=%s store=%s strategy=%s documents=%d elapsed_ms=%d",
		tenant.ID, r.Store.Type(), res.Strategy, len(res.Documents), time.Since(start).Milliseconds())
	metrics.ObserveRetrieval(string(res.Strategy), len(res.Documents))
	metrics.FromContext(ctx).RecordRetrieval(string(res.Strategy), len(res.Documents))
	return res, nil
}
