package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/config"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIProvider talks to the OpenAI chat completions API or any compatible server.
type OpenAIProvider struct {
	client openai.Client
	model  string
	cfg    config.LLMConfig
}

func NewOpenAIProvider(cfg config.LLMConfig, hc *http.Client) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai model is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if hc != nil {
		opts = append(opts, option.WithHTTPClient(hc))
	}
	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		cfg:    cfg,
	}, nil
}

func (p *OpenAIProvider) GenerateCompletion(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(opts.Temperature),
		MaxTokens:   openai.Int(int64(maxTokensOr(opts, p.cfg.MaxTokens))),
	}
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed, err: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) GetProviderType() string {
	return PROVIDER_TYPE_OPENAI
}
