package chart

import (
	"context"
	"fmt"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/logger"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/llm"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/metrics"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

const (
	OutcomeParsed       = "parsed"
	OutcomeParseError   = "parse_error"
	OutcomeGatewayError = "gateway_error"
)

const extractPromptTemplate = `You are a chart specification generator. Read the user's request and describe the chart it asks for.

Infer:
- type: one of "bar", "line", "pie", "doughnut", "radar", "polarArea"
- title: a short chart title
- labels: the category labels, in order
- data: one number per label, in the same order

If the request does not give concrete numbers, invent reasonable example data.
labels and data must have the same length.

Respond with exactly one JSON object and nothing else:
{"type": "bar", "title": "...", "labels": ["..."], "data": [0]}

Request: %s`

// BuildPrompt renders the extraction request for query.
func BuildPrompt(query string) string {
	return fmt.Sprintf(extractPromptTemplate, query)
}

// Extractor turns a free-text request into a chart specification.
type Extractor struct {
	Provider llm.Provider
	Options  llm.CompletionOptions
}

// NewExtractor creates an extractor.
func NewExtractor(provider llm.Provider, opts llm.CompletionOptions) *Extractor {
	return &Extractor{Provider: provider, Options: opts}
}

// Parse asks the model for a chart and strictly parses the answer.
func (e *Extractor) Parse(ctx context.Context, query string) (schema.ChartSpec, error) {
	spec, _, err := e.parse(ctx, query)
	return spec, err
}

func (e *Extractor) parse(ctx context.Context, query string) (schema.ChartSpec, string, error) {
	out, err := e.Provider.GenerateCompletion(ctx, BuildPrompt(query), e.Options)
	if err != nil {
		return schema.ChartSpec{}, OutcomeGatewayError, fmt.Errorf("chart completion failed, err: %w", err)
	}
	spec, err := schema.ParseChartSpec(out)
	if err != nil {
		return schema.ChartSpec{}, OutcomeParseError, fmt.Errorf("chart output rejected, err: %w", err)
	}
	return spec, OutcomeParsed, nil
}

// Extract never fails: any gateway or parse failure yields schema.PlaceholderChart.
func (e *Extractor) Extract(ctx context.Context, query string) schema.ChartSpec {
	spec, outcome, err := e.parse(ctx, query)
	metrics.IncChartOutcome(outcome)
	if err != nil {
		logger.Warnf("chart: %v, using placeholder chart", err)
		return schema.PlaceholderChart()
	}
	logger.Infof("chart: extracted %s chart %q with %d points", spec.Kind, spec.Title, len(spec.Data))
	return spec
}
