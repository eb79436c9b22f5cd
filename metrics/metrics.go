package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	classifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queryorch_classification_total",
		Help: "Capability decisions by selected capabilities and source (llm/rule/fallback)",
	}, []string{"decision", "source"})

	capabilityLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "queryorch_capability_latency_ms",
		Help:    "Latency of capability tasks in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000, 60000},
	}, []string{"capability", "status"})

	retrievalStrategy = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queryorch_retrieval_strategy_total",
		Help: "Which retrieval strategy produced the documents (primary/fallback/empty)",
	}, []string{"strategy"})

	retrievedDocs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "queryorch_retrieved_documents",
		Help:    "Number of documents handed to answer synthesis",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})

	chartOutcome = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queryorch_chart_extraction_total",
		Help: "Chart extraction outcomes (parsed/parse_error/gateway_error)",
	}, []string{"outcome"})

	promptTokens = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "queryorch_prompt_tokens",
		Help:    "Estimated prompt size in tokens",
		Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000},
	}, []string{"stage"})

	requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queryorch_requests_total",
		Help: "Requests by final status (ok/degraded/error)",
	}, []string{"status"})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(Collectors()...)
	})
}

// IncClassification records a capability decision.
func IncClassification(decision, source string) {
	ensureRegistered()
	classifications.WithLabelValues(decision, source).Inc()
}

// ObserveCapability records latency and status of a capability task.
func ObserveCapability(capability string, start time.Time, err error) {
	ensureRegistered()
	status := "ok"
	if err != nil {
		status = "error"
	}
	capabilityLatency.WithLabelValues(capability, status).Observe(float64(time.Since(start).Milliseconds()))
}

// ObserveRetrieval records the strategy used and how many documents it produced.
func ObserveRetrieval(strategy string, docs int) {
	ensureRegistered()
	retrievalStrategy.WithLabelValues(strategy).Inc()
	retrievedDocs.Observe(float64(docs))
}

// IncChartOutcome records whether a chart was extracted or replaced by the placeholder.
func IncChartOutcome(outcome string) {
	ensureRegistered()
	chartOutcome.WithLabelValues(outcome).Inc()
}

// ObservePromptTokens records an estimated prompt size for a stage.
func ObservePromptTokens(stage string, tokens int) {
	ensureRegistered()
	promptTokens.WithLabelValues(stage).Observe(float64(tokens))
}

// IncRequest records a finished request.
func IncRequest(status string) {
	ensureRegistered()
	requests.WithLabelValues(status).Inc()
}

// Collectors exposes all collectors for external registration with a custom registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		classifications,
		capabilityLatency,
		retrievalStrategy,
		retrievedDocs,
		chartOutcome,
		promptTokens,
		requests,
	}
}

// Register makes sure the collectors are on the default registry.
func Register() {
	ensureRegistered()
}
