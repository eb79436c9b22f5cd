package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/logger"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/config"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/llm"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/metrics"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

const (
	SourceLLM          = "llm"
	SourceRule         = "rule"
	SourceFallback     = "fallback"
	// SourceRuleFallback marks a rule decision taken because the model failed.
	SourceRuleFallback = "rule-fallback"
)

// Router decides which capabilities handle a query. Route never fails: when
// classification is not possible it returns schema.FallbackDecision.
type Router interface {
	Route(ctx context.Context, query string) schema.Decision
}

// Classifier is a strict classification step whose errors the caller handles.
type Classifier interface {
	Classify(ctx context.Context, query string) (schema.Decision, error)
}

const classifyPromptTemplate = `You are a query router for a knowledge assistant. Decide which capabilities should handle the user's query.

Capabilities:
- retrieval: the query asks about facts, definitions, procedures or anything that may be answered from the organization's knowledge base.
- chart: the query asks for a chart, graph, plot or another visualization of data.
- direct: the query is a greeting, small talk or general conversation that needs neither the knowledge base nor a chart.

Rules:
- retrieval and chart may both be selected for the same query.
- Select direct only when neither retrieval nor chart applies.
- Select at least one capability.

Respond with exactly one JSON object and nothing else:
{"retrieval": true or false, "chart": true or false, "direct": true or false, "rationale": "one short sentence"}

Query: %s`

// BuildClassifyPrompt renders the classification request for query.
func BuildClassifyPrompt(query string) string {
	return fmt.Sprintf(classifyPromptTemplate, query)
}

// LLMRouter classifies with one completion request.
type LLMRouter struct {
	Provider llm.Provider
	Options  llm.CompletionOptions
}

// NewLLMRouter creates a router that asks provider to classify queries.
func NewLLMRouter(provider llm.Provider, opts llm.CompletionOptions) *LLMRouter {
	return &LLMRouter{Provider: provider, Options: opts}
}

// Classify asks the model and strictly parses its answer.
func (r *LLMRouter) Classify(ctx context.Context, query string) (schema.Decision, error) {
	if r.Provider == nil {
		return schema.Decision{}, fmt.Errorf("llm provider not configured")
	}
	out, err := r.Provider.GenerateCompletion(ctx, BuildClassifyPrompt(query), r.Options)
	if err != nil {
		return schema.Decision{}, fmt.Errorf("classification completion failed, err: %w", err)
	}
	d, err := schema.ParseDecision(out)
	if err != nil {
		return schema.Decision{}, fmt.Errorf("classification output rejected, err: %w", err)
	}
	return d, nil
}

// Route classifies query, falling back to retrieval on any failure.
func (r *LLMRouter) Route(ctx context.Context, query string) schema.Decision {
	d, err := r.Classify(ctx, query)
	if err != nil {
		logger.Warnf("router: %v, using fallback decision", err)
		d = schema.FallbackDecision()
		metrics.IncClassification(d.Label(), SourceFallback)
		return d
	}
	d.Source = SourceLLM
	logger.Infof("router: llm decision - %s (%s)", d.Label(), d.Rationale)
	metrics.IncClassification(d.Label(), SourceLLM)
	return d
}

// HybridRouter asks Primary first and consults Secondary only when the
// primary classification failed.
type HybridRouter struct {
	Primary   Classifier
	Secondary Router
}

// NewHybridRouter creates a hybrid router
func NewHybridRouter(primary Classifier, secondary Router) *HybridRouter {
	if secondary == nil {
		secondary = NewRuleBasedRouter(nil, nil)
	}
	return &HybridRouter{Primary: primary, Secondary: secondary}
}

func (r *HybridRouter) Route(ctx context.Context, query string) schema.Decision {
	if r.Primary != nil {
		d, err := r.Primary.Classify(ctx, query)
		if err == nil {
			d.Source = SourceLLM
			metrics.IncClassification(d.Label(), SourceLLM)
			return d
		}
		logger.Warnf("router: primary classifier failed, using rules: %v", err)
		d = r.Secondary.Route(ctx, query)
		d.Source = SourceRuleFallback
		return d
	}
	return r.Secondary.Route(ctx, query)
}

// NewRouter creates the router selected by cfg.Provider, wrapped in a
// decision cache when cfg.CacheSize is positive.
func NewRouter(cfg config.ClassifierConfig, provider llm.Provider) (Router, error) {
	r, err := newRouter(cfg, provider)
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		return NewCachingRouter(r, cfg.CacheSize, time.Duration(cfg.CacheTTLSeconds)*time.Second), nil
	}
	return r, nil
}

func newRouter(cfg config.ClassifierConfig, provider llm.Provider) (Router, error) {
	opts := llm.CompletionOptions{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
	switch strings.ToLower(cfg.Provider) {
	case "", "llm":
		if provider == nil {
			return nil, fmt.Errorf("llm classifier requires an llm provider")
		}
		return NewLLMRouter(provider, opts), nil
	case "rule":
		return NewRuleBasedRouter(cfg.ChartWords, cfg.DirectWords), nil
	case "hybrid":
		if provider == nil {
			return nil, fmt.Errorf("hybrid classifier requires an llm provider")
		}
		return NewHybridRouter(NewLLMRouter(provider, opts), NewRuleBasedRouter(cfg.ChartWords, cfg.DirectWords)), nil
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", cfg.Provider)
	}
}
