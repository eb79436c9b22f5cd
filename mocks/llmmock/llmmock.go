// Package llmmock provides a scripted language model for tests and local runs.
package llmmock

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/llm"
)

// Rule answers prompts containing Contains.
type Rule struct {
	Contains string
	Response string
	Err      error
	// Delay blocks the call, returning early with ctx.Err() if ctx ends first.
	Delay time.Duration
}

// Call records one completion request.
type Call struct {
	Prompt  string
	Options llm.CompletionOptions
}

// Provider is an llm.Provider that answers from rules, first match wins.
type Provider struct {
	Rules   []Rule
	Default string

	mu    sync.Mutex
	calls []Call
}

var _ llm.Provider = (*Provider)(nil)

func (p *Provider) GenerateCompletion(ctx context.Context, prompt string, opts llm.CompletionOptions) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Prompt: prompt, Options: opts})
	p.mu.Unlock()

	for _, r := range p.Rules {
		if !strings.Contains(prompt, r.Contains) {
			continue
		}
		if r.Delay > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(r.Delay):
			}
		}
		if r.Err != nil {
			return "", r.Err
		}
		return r.Response, nil
	}
	if p.Default == "" {
		return "", llm.ErrEmptyCompletion
	}
	return p.Default, nil
}

func (p *Provider) GetProviderType() string { return "mock" }

// Calls returns a copy of every recorded call.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// CallsContaining counts recorded prompts containing substr.
func (p *Provider) CallsContaining(substr string) int {
	n := 0
	for _, c := range p.Calls() {
		if strings.Contains(c.Prompt, substr) {
			n++
		}
	}
	return n
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
}

// OpenAIHandler serves POST .../chat/completions in the OpenAI wire format,
// answering the last message with p.
func OpenAIHandler(p llm.Provider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
			return
		}
		opts := llm.CompletionOptions{MaxTokens: req.MaxTokens}
		if req.Temperature != nil {
			opts.Temperature = *req.Temperature
		}
		text, err := p.GenerateCompletion(r.Context(), req.Messages[len(req.Messages)-1].Content, opts)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": map[string]string{"message": err.Error()}})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-mock",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": text},
			}},
		})
	})
}
