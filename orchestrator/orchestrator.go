package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/logger"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/metrics"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

// RetrievalHandler answers from a tenant's knowledge base.
type RetrievalHandler interface {
	Answer(ctx context.Context, tenant schema.Tenant, query string) (*schema.RetrievalAnswer, error)
}

// ChartHandler produces a chart spec. It does not fail.
type ChartHandler interface {
	Extract(ctx context.Context, query string) schema.ChartSpec
}

// DirectHandler answers without retrieval.
type DirectHandler interface {
	Respond(ctx context.Context, query string) (*schema.DirectAnswer, error)
}

// Handlers is the set of capability handlers. A nil handler makes its
// capability fail when scheduled.
type Handlers struct {
	Retrieval RetrievalHandler
	Chart     ChartHandler
	Direct    DirectHandler
}

// Orchestrator runs the capabilities selected by a decision concurrently.
type Orchestrator struct {
	Handlers Handlers
}

// New creates an orchestrator.
func New(h Handlers) *Orchestrator {
	return &Orchestrator{Handlers: h}
}

// Plan returns the tasks for decision in schedule order: retrieval, chart,
// then direct only when neither of the others was selected.
func (o *Orchestrator) Plan(q schema.Query, d schema.Decision) []Task {
	tasks := make([]Task, 0, 2)
	if d.WantsRetrieval {
		tasks = append(tasks, o.retrievalTask(q))
	}
	if d.WantsChart {
		tasks = append(tasks, o.chartTask(q))
	}
	if d.WantsDirect && len(tasks) == 0 {
		tasks = append(tasks, o.directTask(q))
	}
	return tasks
}

// Run starts every planned task, waits for all of them and returns one
// outcome per task in schedule order. Failures do not cancel siblings.
func (o *Orchestrator) Run(ctx context.Context, q schema.Query, d schema.Decision) []Outcome {
	tasks := o.Plan(q, d)
	if len(tasks) == 0 {
		logger.Warnf("orchestrator: decision %q selected no capability", d.Label())
		return []Outcome{}
	}

	names := make([]string, 0, len(tasks))
	futures := make([]*Future, 0, len(tasks))
	for _, t := range tasks {
		names = append(names, string(t.Capability))
		futures = append(futures, Go(ctx, t))
	}
	logger.Infof("orchestrator: query %s running [%s]", q.ID, strings.Join(names, ", "))

	outcomes := Join(ctx, futures...)
	qm := metrics.FromContext(ctx)
	for _, oc := range outcomes {
		metrics.ObserveCapability(string(oc.Capability), time.Now().Add(-oc.Elapsed), oc.Err)
		qm.RecordCapability(string(oc.Capability), oc.Elapsed, oc.Err)
		if oc.Err != nil {
			logger.Errorf("orchestrator: %s failed after %dms: %v", oc.Capability, oc.Elapsed.Milliseconds(), oc.Err)
		} else {
			logger.Debugf("orchestrator: %s finished in %dms", oc.Capability, oc.Elapsed.Milliseconds())
		}
	}
	return outcomes
}

func (o *Orchestrator) retrievalTask(q schema.Query) Task {
	return Task{Capability: schema.CapabilityRetrieval, Run: func(ctx context.Context) (schema.CapabilityResult, error) {
		if o.Handlers.Retrieval == nil {
			return schema.CapabilityResult{}, fmt.Errorf("retrieval handler not configured")
		}
		ans, err := o.Handlers.Retrieval.Answer(ctx, q.Tenant, q.Text)
		if err != nil {
			return schema.CapabilityResult{}, err
		}
		return schema.NewRetrievalResult(*ans), nil
	}}
}

func (o *Orchestrator) chartTask(q schema.Query) Task {
	return Task{Capability: schema.CapabilityChart, Run: func(ctx context.Context) (schema.CapabilityResult, error) {
		if o.Handlers.Chart == nil {
			return schema.CapabilityResult{}, fmt.Errorf("chart handler not configured")
		}
		return schema.NewChartResult(o.Handlers.Chart.Extract(ctx, q.Text)), nil
	}}
}

func (o *Orchestrator) directTask(q schema.Query) Task {
	return Task{Capability: schema.CapabilityDirect, Run: func(ctx context.Context) (schema.CapabilityResult, error) {
		if o.Handlers.Direct == nil {
			return schema.CapabilityResult{}, fmt.Errorf("direct handler not configured")
		}
		ans, err := o.Handlers.Direct.Respond(ctx, q.Text)
		if err != nil {
			return schema.CapabilityResult{}, err
		}
		return schema.NewDirectResult(*ans), nil
	}}
}
