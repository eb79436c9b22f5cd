package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/config"
	"google.golang.org/genai"
)

// GeminiProvider talks to the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
	cfg    config.LLMConfig
}

func NewGeminiProvider(ctx context.Context, cfg config.LLMConfig, hc *http.Client) (*GeminiProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("gemini model is required")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client failed, err: %w", err)
	}
	return &GeminiProvider{client: client, model: cfg.Model, cfg: cfg}, nil
}

func (p *GeminiProvider) GenerateCompletion(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(opts.Temperature)),
		MaxOutputTokens: int32(maxTokensOr(opts, p.cfg.MaxTokens)),
	}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, gc)
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed, err: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (p *GeminiProvider) GetProviderType() string {
	return PROVIDER_TYPE_GEMINI
}
