package metrics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/logger"
)

// QueryMetrics is the per-request record logged once a query finishes.
type QueryMetrics struct {
	QueryID   string    `json:"query_id"`
	Tenant    string    `json:"tenant"`
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`

	// Classification
	Decision       string `json:"decision"`
	DecisionSource string `json:"decision_source"`
	Rationale      string `json:"rationale,omitempty"`
	ClassifyMs     int64  `json:"classify_ms"`

	// Capabilities
	Capabilities map[string]CapabilityStats `json:"capabilities"`

	// Retrieval
	RetrievalStrategy string `json:"retrieval_strategy,omitempty"`
	DocumentsUsed     int    `json:"documents_used"`

	// Overall
	TotalLatencyMs int64  `json:"total_latency_ms"`
	Success        bool   `json:"success"`
	Degraded       bool   `json:"degraded,omitempty"`
	ErrorMsg       string `json:"error_msg,omitempty"`

	mu sync.Mutex
}

// CapabilityStats describes one capability task of a request.
type CapabilityStats struct {
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// NewQueryMetrics starts a record for a query.
func NewQueryMetrics(queryID, tenant, query string) *QueryMetrics {
	return &QueryMetrics{
		QueryID:      queryID,
		Tenant:       tenant,
		Query:        query,
		Timestamp:    time.Now(),
		Capabilities: make(map[string]CapabilityStats),
	}
}

// RecordCapability stores stats for a capability. Safe for concurrent use.
func (m *QueryMetrics) RecordCapability(name string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	stats := CapabilityStats{LatencyMs: elapsed.Milliseconds()}
	if err != nil {
		stats.Error = err.Error()
	}
	m.mu.Lock()
	m.Capabilities[name] = stats
	m.mu.Unlock()
}

// RecordRetrieval stores the retrieval strategy and document count.
func (m *QueryMetrics) RecordRetrieval(strategy string, docs int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.RetrievalStrategy = strategy
	m.DocumentsUsed = docs
	m.mu.Unlock()
}

// Log writes the record as one JSON line.
func (m *QueryMetrics) Log() {
	if m == nil {
		return
	}
	m.mu.Lock()
	data, err := json.Marshal(m)
	m.mu.Unlock()
	if err == nil {
		logger.Infof("[QUERY_METRICS] %s", string(data))
	}
}

type ctxKey struct{}

// WithQueryMetrics attaches m to ctx so stages can add to it.
func WithQueryMetrics(ctx context.Context, m *QueryMetrics) context.Context {
	return context.WithValue(ctx, ctxKey{}, m)
}

// FromContext returns the record attached to ctx, or nil. All recording
// methods accept a nil receiver.
func FromContext(ctx context.Context) *QueryMetrics {
	m, _ := ctx.Value(ctxKey{}).(*QueryMetrics)
	return m
}
