package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration of the query engine.
type Config struct {
	LLM          LLMConfig          `json:"llm" yaml:"llm"`
	DocStore     DocStoreConfig     `json:"docstore" yaml:"docstore"`
	Classifier   ClassifierConfig   `json:"classifier" yaml:"classifier"`
	Chart        CompletionConfig   `json:"chart" yaml:"chart"`
	RAG          RAGConfig          `json:"rag" yaml:"rag"`
	Direct       CompletionConfig   `json:"direct" yaml:"direct"`
	Orchestrator OrchestratorConfig `json:"orchestrator" yaml:"orchestrator"`
	HTTP         *HTTPClientConfig  `json:"http,omitempty" yaml:"http,omitempty"`
	Server       ServerConfig       `json:"server" yaml:"server"`
	Logging      LoggingConfig      `json:"logging" yaml:"logging"`
}

// LLMConfig defines configuration for Large Language Models
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // Available options: openai, anthropic, gemini
	APIKey   string `json:"api_key,omitempty" yaml:"api_key"`
	BaseURL  string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model    string `json:"model" yaml:"model"`
	// Temperature and MaxTokens are provider-wide defaults; each stage overrides them.
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// DocStoreConfig selects and configures the tenant document store.
type DocStoreConfig struct {
	// Provider: "memory" (default), "elasticsearch", "postgres"
	Provider string `json:"provider" yaml:"provider"`
	// Fixtures is a YAML file of tenant documents for the memory provider.
	Fixtures string `json:"fixtures,omitempty" yaml:"fixtures,omitempty"`
	// Endpoint and Index address an Elasticsearch cluster.
	Endpoint    string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Index       string `json:"index,omitempty" yaml:"index,omitempty"`
	TenantField string `json:"tenant_field,omitempty" yaml:"tenant_field,omitempty"`
	// DSN is a postgres connection string.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// ClassifierConfig configures capability classification.
type ClassifierConfig struct {
	// Provider: "llm" (default), "rule", "hybrid"
	Provider    string   `json:"provider,omitempty" yaml:"provider,omitempty"`
	Temperature float64  `json:"temperature" yaml:"temperature"`
	MaxTokens   int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	ChartWords  []string `json:"chart_words,omitempty" yaml:"chart_words,omitempty"`
	DirectWords []string `json:"direct_words,omitempty" yaml:"direct_words,omitempty"`
	// CacheSize > 0 memoizes successful decisions per normalized query.
	CacheSize       int `json:"cache_size,omitempty" yaml:"cache_size,omitempty"`
	CacheTTLSeconds int `json:"cache_ttl_seconds,omitempty" yaml:"cache_ttl_seconds,omitempty"`
}

// CompletionConfig holds per-stage sampling options.
type CompletionConfig struct {
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// RAGConfig configures the retrieval-augmented answer pipeline.
type RAGConfig struct {
	CompletionConfig `yaml:",inline"`
	TopK             int `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	FallbackLimit    int `json:"fallback_limit,omitempty" yaml:"fallback_limit,omitempty"`
	MaxContextTokens int `json:"max_context_tokens,omitempty" yaml:"max_context_tokens,omitempty"`
}

const (
	FailurePolicyStrict  = "strict"
	FailurePolicyDegrade = "degrade"
)

// OrchestratorConfig bounds capability execution.
type OrchestratorConfig struct {
	RequestTimeoutMs int `json:"request_timeout_ms,omitempty" yaml:"request_timeout_ms,omitempty"`
	// FailurePolicy: "strict" (default) fails the request on any capability
	// error, "degrade" returns what succeeded.
	FailurePolicy string `json:"failure_policy,omitempty" yaml:"failure_policy,omitempty"`
}

// HTTPClientConfig defines common options for outbound HTTP calls.
type HTTPClientConfig struct {
	TimeoutMs              int      `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	Retry                  int      `json:"retry,omitempty" yaml:"retry,omitempty"`
	BackoffMinMs           int      `json:"backoff_min_ms,omitempty" yaml:"backoff_min_ms,omitempty"`
	BackoffMaxMs           int      `json:"backoff_max_ms,omitempty" yaml:"backoff_max_ms,omitempty"`
	HostAllowlist          []string `json:"host_allowlist,omitempty" yaml:"host_allowlist,omitempty"`
	MaxConsecutiveFailures int      `json:"max_consecutive_failures,omitempty" yaml:"max_consecutive_failures,omitempty"`
	CircuitOpenSeconds     int      `json:"circuit_open_seconds,omitempty" yaml:"circuit_open_seconds,omitempty"`
}

// ServerConfig configures the HTTP surface and entry-point defaults.
type ServerConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	// DefaultTenant is applied by entry points when a request names no tenant.
	DefaultTenant string `json:"default_tenant,omitempty" yaml:"default_tenant,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // console, json
}

// Default returns a configuration that runs offline against the memory store.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   1000,
		},
		DocStore: DocStoreConfig{
			Provider:    "memory",
			TenantField: "tenant_id",
		},
		Classifier: ClassifierConfig{
			Provider:    "llm",
			Temperature: 0,
			MaxTokens:   200,
		},
		Chart: CompletionConfig{Temperature: 0.3, MaxTokens: 500},
		RAG: RAGConfig{
			CompletionConfig: CompletionConfig{Temperature: 0.7, MaxTokens: 1000},
			TopK:             5,
			FallbackLimit:    100,
			MaxContextTokens: 6000,
		},
		Direct: CompletionConfig{Temperature: 0.7, MaxTokens: 500},
		Orchestrator: OrchestratorConfig{
			RequestTimeoutMs: 60000,
			FailurePolicy:    FailurePolicyStrict,
		},
		HTTP: &HTTPClientConfig{
			TimeoutMs:              30000,
			Retry:                  0,
			MaxConsecutiveFailures: 5,
			CircuitOpenSeconds:     5,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			DefaultTenant: "tenant1",
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads a YAML file over the defaults and applies environment fallbacks.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s failed, err: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s failed, err: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.LLM.APIKey == "" {
		switch strings.ToLower(c.LLM.Provider) {
		case "openai":
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "gemini":
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if c.DocStore.DSN == "" {
		c.DocStore.DSN = os.Getenv("QUERYORCH_DATABASE_URL")
	}
}
