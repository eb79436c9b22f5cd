package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/common/httpx"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/config"
)

const (
	PROVIDER_TYPE_OPENAI    = "openai"
	PROVIDER_TYPE_ANTHROPIC = "anthropic"
	PROVIDER_TYPE_GEMINI    = "gemini"
)

// ErrEmptyCompletion is returned when a provider answered with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// CompletionOptions are per-call sampling options.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}

// OptionsFrom converts a stage config into call options.
func OptionsFrom(cc config.CompletionConfig) CompletionOptions {
	return CompletionOptions{Temperature: cc.Temperature, MaxTokens: cc.MaxTokens}
}

// Provider is the language model gateway: one prompt in, one completion out.
// Implementations do not retry.
type Provider interface {
	GenerateCompletion(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
	GetProviderType() string
}

// NewLLMProvider creates a provider from config. Outbound HTTP for SDKs that
// accept a client goes through httpCfg.
func NewLLMProvider(cfg config.LLMConfig, httpCfg *config.HTTPClientConfig) (Provider, error) {
	client := httpx.NewFromConfig(httpCfg)
	switch strings.ToLower(cfg.Provider) {
	case PROVIDER_TYPE_OPENAI:
		return NewOpenAIProvider(cfg, client.StdClient())
	case PROVIDER_TYPE_ANTHROPIC, "claude":
		return NewAnthropicProvider(cfg, client.StdClient())
	case PROVIDER_TYPE_GEMINI:
		return NewGeminiProvider(context.Background(), cfg, client.StdClient())
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

func maxTokensOr(opts CompletionOptions, fallback int) int {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	if fallback > 0 {
		return fallback
	}
	return 1024
}
