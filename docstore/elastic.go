package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/httpx"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

// ElasticGateway queries an Elasticsearch-like backend. Each document carries
// file_id, question, answer and a keyword tenant field.
// Endpoint example: http://es:9200
// Index example: kb_documents
type ElasticGateway struct {
	Endpoint    string
	Index       string
	TenantField string
	Client      *httpx.Client
}

func (g *ElasticGateway) Type() string { return PROVIDER_TYPE_ELASTICSEARCH }

type esSearchRequest struct {
	Size  int                    `json:"size"`
	Query map[string]interface{} `json:"query"`
	Sort  []interface{}          `json:"sort,omitempty"`
}

type esSource struct {
	FileID   string `json:"file_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type esHit struct {
	ID     string   `json:"_id"`
	Score  float64  `json:"_score"`
	Source esSource `json:"_source"`
}
type esHits struct {
	Hits []esHit `json:"hits"`
}
type esSearchResponse struct {
	Hits esHits `json:"hits"`
}

func (g *ElasticGateway) tenantFilter(tenant schema.Tenant) map[string]interface{} {
	field := g.TenantField
	if field == "" {
		field = "tenant_id"
	}
	return map[string]interface{}{"term": map[string]interface{}{field: tenant.ID}}
}

func (g *ElasticGateway) SearchKeyword(ctx context.Context, tenant schema.Tenant, query string, limit int) ([]schema.RetrievedDocument, error) {
	limit = clampLimit(limit)
	if limit == 0 {
		return []schema.RetrievedDocument{}, nil
	}
	q := esSearchRequest{
		Size: limit,
		Query: map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  query,
							"fields": []string{"question^2", "answer"},
						},
					},
				},
				"filter": []interface{}{g.tenantFilter(tenant)},
			},
		},
	}
	return g.search(ctx, q)
}

func (g *ElasticGateway) FetchAll(ctx context.Context, tenant schema.Tenant, limit int) ([]schema.RetrievedDocument, error) {
	limit = clampLimit(limit)
	if limit == 0 {
		return []schema.RetrievedDocument{}, nil
	}
	q := esSearchRequest{
		Size: limit,
		Query: map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{g.tenantFilter(tenant)},
			},
		},
		Sort: []interface{}{"_doc"},
	}
	return g.search(ctx, q)
}

func (g *ElasticGateway) search(ctx context.Context, q esSearchRequest) ([]schema.RetrievedDocument, error) {
	if g.Endpoint == "" || g.Index == "" {
		return nil, fmt.Errorf("elasticsearch endpoint and index are required")
	}
	if g.Client == nil {
		return nil, fmt.Errorf("elasticsearch http client not configured")
	}
	bs, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	// Build URL: {endpoint}/{index}/_search
	u, err := url.Parse(g.Endpoint)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, g.Index, "_search")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(bs))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed, err: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("elasticsearch http status %d", resp.StatusCode)
	}
	var esr esSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&esr); err != nil {
		return nil, fmt.Errorf("decode elasticsearch response failed, err: %w", err)
	}
	out := make([]schema.RetrievedDocument, 0, len(esr.Hits.Hits))
	for _, h := range esr.Hits.Hits {
		fileID := h.Source.FileID
		if fileID == "" {
			fileID = h.ID
		}
		out = append(out, schema.RetrievedDocument{
			FileID:   fileID,
			Question: h.Source.Question,
			Answer:   h.Source.Answer,
		})
	}
	return out, nil
}
