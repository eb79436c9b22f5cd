package direct

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/llm"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/mocks/llmmock"
)

func TestRespond(t *testing.T) {
	p := &llmmock.Provider{Default: "Hello! How can I help?\n"}
	a := NewAnswerer(p, llm.CompletionOptions{Temperature: 0.7, MaxTokens: 500})

	ans, err := a.Respond(context.Background(), "Hello!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Answer != "Hello! How can I help?" {
		t.Errorf("answer = %q", ans.Answer)
	}
	calls := p.Calls()
	if len(calls) != 1 || !strings.Contains(calls[0].Prompt, "Question: Hello!") {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	if calls[0].Options.MaxTokens != 500 {
		t.Errorf("options = %+v", calls[0].Options)
	}
}

func TestRespondPropagatesError(t *testing.T) {
	boom := errors.New("unauthorized")
	p := &llmmock.Provider{Rules: []llmmock.Rule{{Contains: "directly", Err: boom}}}
	if _, err := NewAnswerer(p, llm.CompletionOptions{}).Respond(context.Background(), "hi"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestRespondAcceptsEmptyCompletion(t *testing.T) {
	p := &llmmock.Provider{}
	ans, err := NewAnswerer(p, llm.CompletionOptions{}).Respond(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ans.Answer != "" {
		t.Errorf("answer = %q, want empty", ans.Answer)
	}
}
