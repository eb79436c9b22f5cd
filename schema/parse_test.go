package schema

import (
	"errors"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "bare object", input: `{"a":1}`, want: `{"a":1}`},
		{name: "surrounding prose", input: "Sure! Here you go:\n{\"a\":1}\nHope that helps.", want: `{"a":1}`},
		{name: "markdown fence", input: "```json\n{\"a\":{\"b\":2}}\n```", want: `{"a":{"b":2}}`},
		{name: "brace inside string", input: `{"r":"use } carefully"} trailing {`, want: `{"r":"use } carefully"}`},
		{name: "escaped quote", input: `{"r":"say \"{hi\""}`, want: `{"r":"say \"{hi\""}`},
		{name: "first of two", input: `{"a":1} {"b":2}`, want: `{"a":1}`},
		{name: "unbalanced then balanced", input: `{ oops {"a":1}`, want: `{"a":1}`},
		{name: "no object", input: "not json at all", wantErr: ErrNoJSONObject},
		{name: "empty", input: "", wantErr: ErrNoJSONObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Decision
		wantErr bool
	}{
		{
			name:  "retrieval only",
			input: `{"retrieval": true, "chart": false, "direct": false, "rationale": "kb question"}`,
			want:  Decision{WantsRetrieval: true, Rationale: "kb question"},
		},
		{
			name:  "retrieval and chart with prose",
			input: "Decision:\n{\"retrieval\": true, \"chart\": true, \"rationale\": \"both\"}",
			want:  Decision{WantsRetrieval: true, WantsChart: true, Rationale: "both"},
		},
		{
			name:  "missing keys default false",
			input: `{"direct": true}`,
			want:  Decision{WantsDirect: true},
		},
		{name: "prose only", input: "I would use retrieval here.", wantErr: true},
		{name: "malformed json", input: `{"retrieval": tru}`, wantErr: true},
		{name: "wrong type", input: `{"retrieval": "yes"}`, wantErr: true},
		{name: "nothing selected", input: `{"retrieval": false, "chart": false, "direct": false}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecision(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseDecisionEmptyIsSentinel(t *testing.T) {
	_, err := ParseDecision(`{"retrieval": false}`)
	if !errors.Is(err, ErrEmptyDecision) {
		t.Fatalf("expected ErrEmptyDecision, got %v", err)
	}
}

func TestParseChartSpec(t *testing.T) {
	got, err := ParseChartSpec(`Here: {"type":"pie","title":"Share","labels":["a","b"],"data":[1.5,2]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != ChartPie || got.Title != "Share" || len(got.Labels) != 2 || got.Data[0] != 1.5 {
		t.Errorf("unexpected spec: %+v", got)
	}

	_, err = ParseChartSpec(`{"type":"bar","title":"x","labels":["a","b","c"],"data":[1,2]}`)
	if !errors.Is(err, ErrChartLengthMismatch) {
		t.Fatalf("expected length mismatch, got %v", err)
	}

	if _, err := ParseChartSpec(`{"type":"bar","labels":["a"],"data":["one"]}`); err == nil {
		t.Fatal("expected error for non-numeric data")
	}
	if _, err := ParseChartSpec("no chart"); !errors.Is(err, ErrNoJSONObject) {
		t.Fatalf("expected ErrNoJSONObject, got %v", err)
	}
}

func TestPlaceholderChart(t *testing.T) {
	p := PlaceholderChart()
	if p.Kind != ChartBar || p.Title != "Sample Chart" {
		t.Fatalf("unexpected placeholder: %+v", p)
	}
	if len(p.Labels) != len(p.Data) {
		t.Fatalf("placeholder violates length equality: %+v", p)
	}
	want := []float64{10, 20, 15}
	for i, v := range want {
		if p.Data[i] != v {
			t.Errorf("data[%d] = %v, want %v", i, p.Data[i], v)
		}
	}
}

func TestDecisionLabel(t *testing.T) {
	if got := (Decision{WantsRetrieval: true, WantsChart: true}).Label(); got != "retrieval+chart" {
		t.Errorf("got %q", got)
	}
	if got := (Decision{}).Label(); got != "none" {
		t.Errorf("got %q", got)
	}
	if !FallbackDecision().IsFallback() {
		t.Error("fallback decision should report IsFallback")
	}
}
