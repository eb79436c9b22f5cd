package schema

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Capability names a capability handler the engine can dispatch to.
type Capability string

const (
	CapabilityRetrieval Capability = "retrieval"
	CapabilityChart     Capability = "chart"
	CapabilityDirect    Capability = "direct"
)

// ErrMissingTenant is returned by entry points that received no tenant at all.
var ErrMissingTenant = errors.New("tenant is required")

// Tenant scopes every document store read. There is no default tenant in the
// core; callers choose one at the outermost entry point.
type Tenant struct {
	ID string `json:"id"`
}

// NewTenant returns a tenant context for id.
func NewTenant(id string) Tenant {
	return Tenant{ID: strings.TrimSpace(id)}
}

func (t Tenant) String() string { return t.ID }

// Query is one user request. It is immutable once built.
type Query struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Tenant Tenant `json:"tenant"`
}

// NewQuery builds a query with a fresh request ID.
func NewQuery(text string, tenant Tenant) Query {
	return Query{ID: uuid.NewString(), Text: text, Tenant: tenant}
}

// Decision is the classifier's selection of capabilities.
type Decision struct {
	WantsRetrieval bool   `json:"retrieval"`
	WantsChart     bool   `json:"chart"`
	WantsDirect    bool   `json:"direct"`
	Rationale      string `json:"rationale"`
	// Source names what produced the decision (llm, rule, fallback).
	Source string `json:"-"`
}

// FallbackRationale marks a decision produced because classification failed.
const FallbackRationale = "fallback"

// FallbackDecision is used whenever classification output cannot be trusted.
func FallbackDecision() Decision {
	return Decision{WantsRetrieval: true, Rationale: FallbackRationale, Source: FallbackRationale}
}

// IsFallback reports whether d was produced by FallbackDecision.
func (d Decision) IsFallback() bool {
	return d.Rationale == FallbackRationale && d.WantsRetrieval && !d.WantsChart && !d.WantsDirect
}

// Empty reports whether no capability was selected.
func (d Decision) Empty() bool {
	return !d.WantsRetrieval && !d.WantsChart && !d.WantsDirect
}

// Label renders the selected capabilities as "retrieval+chart", used for logs and metrics.
func (d Decision) Label() string {
	parts := make([]string, 0, 3)
	if d.WantsRetrieval {
		parts = append(parts, string(CapabilityRetrieval))
	}
	if d.WantsChart {
		parts = append(parts, string(CapabilityChart))
	}
	if d.WantsDirect {
		parts = append(parts, string(CapabilityDirect))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// RetrievedDocument is a Q&A row read from a tenant's knowledge base.
type RetrievedDocument struct {
	FileID   string `json:"fileId" yaml:"file_id"`
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Reference is the citation form of a RetrievedDocument returned to callers.
type Reference struct {
	FileID   string `json:"fileId"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ReferenceFrom converts a retrieved document into a reference.
func ReferenceFrom(doc RetrievedDocument) Reference {
	return Reference{FileID: doc.FileID, Question: doc.Question, Answer: doc.Answer}
}

// RetrievalAnswer is the output of the retrieval capability.
// FileIDs keeps retrieval order and duplicates; References mirror the documents 1:1.
type RetrievalAnswer struct {
	Answer     string      `json:"answer"`
	FileIDs    []string    `json:"fileIds"`
	References []Reference `json:"references"`
}

// DirectAnswer is the output of the direct-answer capability.
type DirectAnswer struct {
	Answer string `json:"answer"`
}

// CapabilityResult is a tagged union of capability outputs.
// Exactly one payload matching Capability is set.
type CapabilityResult struct {
	Capability Capability
	Retrieval  *RetrievalAnswer
	Chart      *ChartSpec
	Direct     *DirectAnswer
}

func NewRetrievalResult(a RetrievalAnswer) CapabilityResult {
	return CapabilityResult{Capability: CapabilityRetrieval, Retrieval: &a}
}

func NewChartResult(c ChartSpec) CapabilityResult {
	return CapabilityResult{Capability: CapabilityChart, Chart: &c}
}

func NewDirectResult(a DirectAnswer) CapabilityResult {
	return CapabilityResult{Capability: CapabilityDirect, Direct: &a}
}
