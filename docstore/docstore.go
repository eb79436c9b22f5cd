package docstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/httpx"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/config"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

const (
	PROVIDER_TYPE_MEMORY        = "memory"
	PROVIDER_TYPE_ELASTICSEARCH = "elasticsearch"
	PROVIDER_TYPE_POSTGRES      = "postgres"
)

// Gateway reads one tenant's Q&A documents. Every method is scoped to the
// tenant passed in; unknown tenants simply have no documents.
type Gateway interface {
	// SearchKeyword returns up to limit documents ranked by keyword relevance.
	SearchKeyword(ctx context.Context, tenant schema.Tenant, query string, limit int) ([]schema.RetrievedDocument, error)
	// FetchAll returns up to limit documents with no relevance filter.
	FetchAll(ctx context.Context, tenant schema.Tenant, limit int) ([]schema.RetrievedDocument, error)
	Type() string
}

// NewGateway creates a document store gateway from config.
func NewGateway(cfg config.DocStoreConfig, httpCfg *config.HTTPClientConfig) (Gateway, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", PROVIDER_TYPE_MEMORY:
		var fx Fixtures
		if cfg.Fixtures != "" {
			var err error
			if fx, err = LoadFixtures(cfg.Fixtures); err != nil {
				return nil, err
			}
		}
		return NewMemoryStore(fx)
	case PROVIDER_TYPE_ELASTICSEARCH, "es":
		return &ElasticGateway{
			Endpoint:    cfg.Endpoint,
			Index:       cfg.Index,
			TenantField: cfg.TenantField,
			Client:      httpx.NewFromConfig(httpCfg),
		}, nil
	case PROVIDER_TYPE_POSTGRES:
		return NewPostgresGateway(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported docstore provider: %s", cfg.Provider)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 0
	}
	if limit > config.MaxFetchLimit {
		return config.MaxFetchLimit
	}
	return limit
}
