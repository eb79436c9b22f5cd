package merger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/logger"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/config"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/orchestrator"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

const (
	ChartSuffix     = "\n\nI've also generated a chart visualization for you."
	ChartOnlyAnswer = "I've generated a chart based on your request."
	NoRouteAnswer   = "I'm not sure how to help with that request. Please try rephrasing."
)

// ErrAllCapabilitiesFailed wraps the failures when nothing is left to merge.
var ErrAllCapabilitiesFailed = errors.New("all capabilities failed")

// Merge combines capability results into one response. Results are looked up
// by tag, so their order does not matter; a later duplicate tag wins.
func Merge(results []schema.CapabilityResult) schema.Response {
	var (
		retrieval *schema.RetrievalAnswer
		chart     *schema.ChartSpec
		direct    *schema.DirectAnswer
	)
	for _, r := range results {
		switch r.Capability {
		case schema.CapabilityRetrieval:
			retrieval = r.Retrieval
		case schema.CapabilityChart:
			chart = r.Chart
		case schema.CapabilityDirect:
			direct = r.Direct
		}
	}

	switch {
	case retrieval != nil:
		answer := retrieval.Answer
		if chart != nil {
			answer += ChartSuffix
		}
		resp := schema.NewResponse(answer)
		resp.FileIDs = append(resp.FileIDs, retrieval.FileIDs...)
		resp.References = append(resp.References, retrieval.References...)
		resp.ChartConfig = copyChart(chart)
		return resp
	case chart != nil:
		resp := schema.NewResponse(ChartOnlyAnswer)
		resp.ChartConfig = copyChart(chart)
		return resp
	case direct != nil:
		return schema.NewResponse(direct.Answer)
	default:
		return schema.NewResponse(NoRouteAnswer)
	}
}

func copyChart(c *schema.ChartSpec) *schema.ChartSpec {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Labels = append([]string{}, c.Labels...)
	cp.Data = append([]float64{}, c.Data...)
	return &cp
}

// Merger applies a failure policy to orchestrator outcomes.
type Merger struct {
	Policy string
}

// New creates a merger; an empty policy means strict.
func New(policy string) *Merger {
	if policy == "" {
		policy = config.FailurePolicyStrict
	}
	return &Merger{Policy: policy}
}

// Combine merges successful outcomes.
//
// strict: any failure fails the request. The first failure in schedule order
// is returned, with later ones appended via multierror.
// degrade: failures are left out and listed in Response.Error; the request
// fails only when every outcome failed.
func (m *Merger) Combine(outcomes []orchestrator.Outcome) (schema.Response, error) {
	results := make([]schema.CapabilityResult, 0, len(outcomes))
	var failed []orchestrator.Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
			continue
		}
		results = append(results, o.Result)
	}
	if len(failed) == 0 {
		return Merge(results), nil
	}

	if m.Policy == config.FailurePolicyDegrade && len(results) > 0 {
		resp := Merge(results)
		msgs := make([]string, 0, len(failed))
		for _, o := range failed {
			msgs = append(msgs, fmt.Sprintf("%s: %v", o.Capability, o.Err))
		}
		msg := strings.Join(msgs, "; ")
		resp.Error = &msg
		resp.Degraded = true
		logger.Warnf("merger: degraded response, %s", msg)
		return resp, nil
	}

	err := failureError(failed)
	if m.Policy == config.FailurePolicyDegrade {
		err = fmt.Errorf("%w: %w", ErrAllCapabilitiesFailed, err)
	}
	return schema.Response{}, err
}

func failureError(failed []orchestrator.Outcome) error {
	first := fmt.Errorf("%s failed, err: %w", failed[0].Capability, failed[0].Err)
	if len(failed) == 1 {
		return first
	}
	var result *multierror.Error
	for _, o := range failed {
		result = multierror.Append(result, fmt.Errorf("%s failed, err: %w", o.Capability, o.Err))
	}
	return result
}
