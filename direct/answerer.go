package direct

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/llm"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

const promptTemplate = `You are a friendly assistant. Answer the following question directly and concisely. If it is a greeting or small talk, reply naturally.

Question: %s`

// BuildPrompt renders the direct-answer request.
func BuildPrompt(query string) string {
	return fmt.Sprintf(promptTemplate, query)
}

// Answerer answers a query with the model alone.
type Answerer struct {
	Provider llm.Provider
	Options  llm.CompletionOptions
}

func NewAnswerer(provider llm.Provider, opts llm.CompletionOptions) *Answerer {
	return &Answerer{Provider: provider, Options: opts}
}

// Respond returns the model's answer. Gateway errors propagate.
func (a *Answerer) Respond(ctx context.Context, query string) (*schema.DirectAnswer, error) {
	out, err := a.Provider.GenerateCompletion(ctx, BuildPrompt(query), a.Options)
	if errors.Is(err, llm.ErrEmptyCompletion) {
		out, err = "", nil
	}
	if err != nil {
		return nil, fmt.Errorf("direct answer failed, err: %w", err)
	}
	return &schema.DirectAnswer{Answer: strings.TrimSpace(out)}, nil
}
