package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/config"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/docstore"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/llm"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/mocks/llmmock"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/retriever"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

func newPipeline(t *testing.T, p llm.Provider) *Pipeline {
	t.Helper()
	fx, err := docstore.LoadFixtures("../testdata/knowledge_base.yaml")
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	store, err := docstore.NewMemoryStore(fx)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	r := retriever.New(store, config.RAGConfig{TopK: 5, FallbackLimit: 100})
	return NewPipeline(r, p, llm.CompletionOptions{Temperature: 0.7, MaxTokens: 1000}, 6000)
}

func TestAnswerFromPrimarySearch(t *testing.T) {
	p := &llmmock.Provider{Default: "  Paris is the capital of France.  "}
	ans, err := newPipeline(t, p).Answer(context.Background(), schema.NewTenant("tenant1"), "What is the capital of France?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Answer != "Paris is the capital of France." {
		t.Errorf("answer = %q", ans.Answer)
	}
	if len(ans.FileIDs) == 0 || ans.FileIDs[0] != "FILE-001" {
		t.Fatalf("fileIds = %v, want FILE-001 first", ans.FileIDs)
	}
	if len(ans.References) != len(ans.FileIDs) {
		t.Fatalf("references do not mirror fileIds: %v vs %v", ans.References, ans.FileIDs)
	}
	for i, ref := range ans.References {
		if ref.FileID != ans.FileIDs[i] {
			t.Errorf("reference %d = %s, fileId %s", i, ref.FileID, ans.FileIDs[i])
		}
	}

	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one synthesis call, got %d", len(calls))
	}
	prompt := calls[0].Prompt
	for _, want := range []string{"Context from the knowledge base:", "File ID: FILE-001", "The capital of France is Paris.", "User question: What is the capital of France?"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if calls[0].Options.MaxTokens != 1000 {
		t.Errorf("options = %+v", calls[0].Options)
	}
}

func TestAnswerUsesFallbackWhenNothingMatches(t *testing.T) {
	p := &llmmock.Provider{Default: "I don't know."}
	ans, err := newPipeline(t, p).Answer(context.Background(), schema.NewTenant("tenant2"), "zxqv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"FILE-004", "FILE-005"}
	if strings.Join(ans.FileIDs, ",") != strings.Join(want, ",") {
		t.Errorf("fileIds = %v, want %v", ans.FileIDs, want)
	}
}

func TestAnswerEmptyTenantSkipsModel(t *testing.T) {
	p := &llmmock.Provider{Default: "should not be used"}
	ans, err := newPipeline(t, p).Answer(context.Background(), schema.NewTenant("tenant3"), "What is the capital of France?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Answer != NoResultsAnswer {
		t.Errorf("answer = %q", ans.Answer)
	}
	if ans.FileIDs == nil || len(ans.FileIDs) != 0 || ans.References == nil || len(ans.References) != 0 {
		t.Errorf("expected empty non-nil lists, got %+v", ans)
	}
	if n := len(p.Calls()); n != 0 {
		t.Errorf("expected no completion call, got %d", n)
	}
}

func TestAnswerTenantIsolation(t *testing.T) {
	p := &llmmock.Provider{Default: "answer"}
	ans, err := newPipeline(t, p).Answer(context.Background(), schema.NewTenant("tenant2"), "What is the capital of France?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range ans.FileIDs {
		if id != "FILE-004" && id != "FILE-005" {
			t.Errorf("tenant2 answer cites %s", id)
		}
	}
}

func TestAnswerPropagatesModelError(t *testing.T) {
	boom := errors.New("quota exceeded")
	p := &llmmock.Provider{Rules: []llmmock.Rule{{Contains: "Context from the knowledge base", Err: boom}}}
	_, err := newPipeline(t, p).Answer(context.Background(), schema.NewTenant("tenant1"), "photosynthesis")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped model error, got %v", err)
	}
}

func TestBuildPromptKeepsOrderAndDuplicates(t *testing.T) {
	docs := []schema.RetrievedDocument{
		{FileID: "B", Question: "qb", Answer: "ab"},
		{FileID: "A", Question: "qa", Answer: "aa"},
		{FileID: "B", Question: "qb", Answer: "ab"},
	}
	prompt := BuildPrompt("q", docs)
	first := strings.Index(prompt, "File ID: B")
	second := strings.Index(prompt, "File ID: A")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("documents out of order in prompt:\n%s", prompt)
	}
	if strings.Count(prompt, "File ID: B") != 2 {
		t.Errorf("duplicate document dropped")
	}
	if strings.Contains(strings.ToLower(prompt), "provided documents") {
		t.Errorf("prompt must not mention provided documents")
	}
}

type stubRetriever struct{ docs []schema.RetrievedDocument }

func (s stubRetriever) Retrieve(ctx context.Context, tenant schema.Tenant, query string) (retriever.Result, error) {
	return retriever.Result{Documents: s.docs, Strategy: retriever.StrategyPrimary}, nil
}

func TestAnswerPreservesDuplicateFileIDs(t *testing.T) {
	docs := []schema.RetrievedDocument{{FileID: "X"}, {FileID: "Y"}, {FileID: "X"}}
	p := NewPipeline(stubRetriever{docs: docs}, &llmmock.Provider{Default: "ok"}, llm.CompletionOptions{}, 0)
	ans, err := p.Answer(context.Background(), schema.NewTenant("t"), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(ans.FileIDs, ","); got != "X,Y,X" {
		t.Errorf("fileIds = %s, want X,Y,X", got)
	}
}

func TestAnswerAcceptsEmptyCompletion(t *testing.T) {
	p := &llmmock.Provider{}
	ans, err := newPipeline(t, p).Answer(context.Background(), schema.NewTenant("tenant1"), "What is the capital of France?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Answer != "" {
		t.Errorf("answer = %q, want empty", ans.Answer)
	}
	if len(ans.FileIDs) == 0 || ans.FileIDs[0] != "FILE-001" {
		t.Errorf("fileIds = %v", ans.FileIDs)
	}
}
