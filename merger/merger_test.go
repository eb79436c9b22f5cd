package merger

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/config"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/orchestrator"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

var (
	retrievalResult = schema.NewRetrievalResult(schema.RetrievalAnswer{
		Answer:     "Photosynthesis turns light into sugar.",
		FileIDs:    []string{"FILE-002"},
		References: []schema.Reference{{FileID: "FILE-002", Question: "How does photosynthesis work?", Answer: "..."}},
	})
	chartResult = schema.NewChartResult(schema.ChartSpec{
		Kind: schema.ChartPie, Title: "Share", Labels: []string{"a", "b"}, Data: []float64{1, 2},
	})
	directResult = schema.NewDirectResult(schema.DirectAnswer{Answer: "Hello!"})
)

func TestMergeTable(t *testing.T) {
	tests := []struct {
		name        string
		results     []schema.CapabilityResult
		wantAnswer  string
		wantFileIDs []string
		wantChart   bool
	}{
		{
			name:        "retrieval and chart",
			results:     []schema.CapabilityResult{retrievalResult, chartResult},
			wantAnswer:  "Photosynthesis turns light into sugar." + ChartSuffix,
			wantFileIDs: []string{"FILE-002"},
			wantChart:   true,
		},
		{
			name:        "retrieval only",
			results:     []schema.CapabilityResult{retrievalResult},
			wantAnswer:  "Photosynthesis turns light into sugar.",
			wantFileIDs: []string{"FILE-002"},
		},
		{
			name:        "chart only",
			results:     []schema.CapabilityResult{chartResult},
			wantAnswer:  ChartOnlyAnswer,
			wantFileIDs: []string{},
			wantChart:   true,
		},
		{
			name:        "direct only",
			results:     []schema.CapabilityResult{directResult},
			wantAnswer:  "Hello!",
			wantFileIDs: []string{},
		},
		{
			name:        "nothing",
			results:     nil,
			wantAnswer:  NoRouteAnswer,
			wantFileIDs: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Merge(tt.results)
			if resp.Answer != tt.wantAnswer {
				t.Errorf("answer = %q, want %q", resp.Answer, tt.wantAnswer)
			}
			if !reflect.DeepEqual(resp.FileIDs, tt.wantFileIDs) {
				t.Errorf("fileIds = %v, want %v", resp.FileIDs, tt.wantFileIDs)
			}
			if len(resp.References) != len(tt.wantFileIDs) {
				t.Errorf("references = %v", resp.References)
			}
			if (resp.ChartConfig != nil) != tt.wantChart {
				t.Errorf("chartConfig = %+v, want present=%v", resp.ChartConfig, tt.wantChart)
			}
			if resp.Error != nil {
				t.Errorf("unexpected error field: %s", *resp.Error)
			}
		})
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	a := Merge([]schema.CapabilityResult{retrievalResult, chartResult})
	b := Merge([]schema.CapabilityResult{chartResult, retrievalResult})
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("merge depends on order:\n%+v\n%+v", a, b)
	}
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	in := schema.NewChartResult(schema.ChartSpec{Kind: schema.ChartBar, Labels: []string{"x"}, Data: []float64{1}})
	resp := Merge([]schema.CapabilityResult{in})
	resp.ChartConfig.Labels[0] = "changed"
	if in.Chart.Labels[0] != "x" {
		t.Fatal("response shares chart labels with its input")
	}
}

func outcome(r schema.CapabilityResult) orchestrator.Outcome {
	return orchestrator.Outcome{Capability: r.Capability, Result: r}
}

func failed(c schema.Capability, err error) orchestrator.Outcome {
	return orchestrator.Outcome{Capability: c, Err: err}
}

func TestCombineStrict(t *testing.T) {
	boom := errors.New("llm down")
	m := New("")

	resp, err := m.Combine([]orchestrator.Outcome{outcome(retrievalResult), outcome(chartResult)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(resp.Answer, ChartSuffix) {
		t.Errorf("answer = %q", resp.Answer)
	}

	_, err = m.Combine([]orchestrator.Outcome{failed(schema.CapabilityRetrieval, boom), outcome(chartResult)})
	if !errors.Is(err, boom) {
		t.Fatalf("expected retrieval error, got %v", err)
	}
	if !strings.Contains(err.Error(), "retrieval") {
		t.Errorf("error does not name the capability: %v", err)
	}
}

func TestCombineStrictAggregatesFailures(t *testing.T) {
	first := errors.New("first")
	second := context.DeadlineExceeded
	_, err := New(config.FailurePolicyStrict).Combine([]orchestrator.Outcome{
		failed(schema.CapabilityRetrieval, first),
		failed(schema.CapabilityChart, second),
	})
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected both failures, got %v", err)
	}
}

func TestCombineDegrade(t *testing.T) {
	boom := errors.New("llm down")
	resp, err := New(config.FailurePolicyDegrade).Combine([]orchestrator.Outcome{
		failed(schema.CapabilityRetrieval, boom),
		outcome(chartResult),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != ChartOnlyAnswer || resp.ChartConfig == nil {
		t.Errorf("expected chart-only response, got %+v", resp)
	}
	if !resp.Degraded || resp.Error == nil || !strings.Contains(*resp.Error, "retrieval: llm down") {
		t.Errorf("failure not reported: %+v", resp)
	}
}

func TestCombineDegradeAllFailed(t *testing.T) {
	boom := errors.New("llm down")
	_, err := New(config.FailurePolicyDegrade).Combine([]orchestrator.Outcome{failed(schema.CapabilityDirect, boom)})
	if !errors.Is(err, ErrAllCapabilitiesFailed) || !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}

func TestCombineNoOutcomes(t *testing.T) {
	resp, err := New("").Combine(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != NoRouteAnswer {
		t.Errorf("answer = %q", resp.Answer)
	}
}
