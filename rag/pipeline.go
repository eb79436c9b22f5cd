package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/logger"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/llm"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/metrics"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/retriever"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

// NoResultsAnswer is returned, without a model call, when the tenant has no documents.
const NoResultsAnswer = "I couldn't find any relevant information in the knowledge base to answer your question."

// Retriever finds candidate documents for a query within a tenant.
type Retriever interface {
	Retrieve(ctx context.Context, tenant schema.Tenant, query string) (retriever.Result, error)
}

// Pipeline answers a query from a tenant's knowledge base.
type Pipeline struct {
	Retriever Retriever
	Provider  llm.Provider
	Options   llm.CompletionOptions
	// MaxContextTokens only triggers a warning; documents are never dropped.
	MaxContextTokens int
}

// NewPipeline creates a RAG pipeline.
func NewPipeline(r Retriever, provider llm.Provider, opts llm.CompletionOptions, maxContextTokens int) *Pipeline {
	return &Pipeline{Retriever: r, Provider: provider, Options: opts, MaxContextTokens: maxContextTokens}
}

// Answer retrieves the tenant's documents for query and synthesizes an answer.
func (p *Pipeline) Answer(ctx context.Context, tenant schema.Tenant, query string) (*schema.RetrievalAnswer, error) {
	res, err := p.Retriever.Retrieve(ctx, tenant, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed, err: %w", err)
	}
	if len(res.Documents) == 0 {
		return &schema.RetrievalAnswer{
			Answer:     NoResultsAnswer,
			FileIDs:    []string{},
			References: []schema.Reference{},
		}, nil
	}

	prompt := BuildPrompt(query, res.Documents)
	tokens := llm.CountTokens(prompt)
	metrics.ObservePromptTokens(string(schema.CapabilityRetrieval), tokens)
	if p.MaxContextTokens > 0 && tokens > p.MaxContextTokens {
		logger.Warnf("rag: prompt has %d tokens, above max_context_tokens %d", tokens, p.MaxContextTokens)
	}

	answer, err := p.Provider.GenerateCompletion(ctx, prompt, p.Options)
	if errors.Is(err, llm.ErrEmptyCompletion) {
		logger.Warnf("rag: model returned an empty answer for tenant %s", tenant)
		answer, err = "", nil
	}
	if err != nil {
		return nil, fmt.Errorf("answer synthesis failed, err: %w", err)
	}

	out := &schema.RetrievalAnswer{
		Answer:     strings.TrimSpace(answer),
		FileIDs:    make([]string, 0, len(res.Documents)),
		References: make([]schema.Reference, 0, len(res.Documents)),
	}
	for _, doc := range res.Documents {
		out.FileIDs = append(out.FileIDs, doc.FileID)
		out.References = append(out.References, schema.ReferenceFrom(doc))
	}
	logger.Debugf("rag: answered from %d documents (%s)", len(res.Documents), res.Strategy)
	return out, nil
}

// BuildPrompt renders the synthesis request. Documents keep retrieval order.
func BuildPrompt(query string, docs []schema.RetrievedDocument) string {
	var b strings.Builder
	b.WriteString("Context from the knowledge base:\n\n")
	for i, doc := range docs {
		fmt.Fprintf(&b, "[%d]\nFile ID: %s\nQuestion: %s\nAnswer: %s\n\n", i+1, doc.FileID, doc.Question, doc.Answer)
	}
	b.WriteString("Using only the context above, answer the user's question. ")
	b.WriteString("Write in a neutral tone and answer as if you know the information yourself; ")
	b.WriteString("do not mention documents, context or sources. ")
	b.WriteString("If the context does not contain the answer, say that you don't know.\n\n")
	fmt.Fprintf(&b, "User question: %s", query)
	return b.String()
}
