package config

import (
	"fmt"
	"strings"
)

// MaxFetchLimit caps full-scan reads of a tenant's documents.
const MaxFetchLimit = 100

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("found %d configuration error(s):\n", len(errs)))
	for i, err := range errs {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Message))
	}
	return b.String()
}

// Validate validates the complete configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateLLM()...)
	errs = append(errs, c.validateDocStore()...)
	errs = append(errs, c.validateClassifier()...)
	errs = append(errs, c.validateRAG()...)
	errs = append(errs, validateCompletion("chart", c.Chart)...)
	errs = append(errs, validateCompletion("direct", c.Direct)...)
	errs = append(errs, c.validateOrchestrator()...)

	if c.HTTP != nil && c.HTTP.Retry < 0 {
		errs = append(errs, ValidationError{
			Field:   "http.retry",
			Message: fmt.Sprintf("http.retry must be non-negative, got %d", c.HTTP.Retry),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateLLM validates language model configuration
func (c *Config) validateLLM() ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(c.LLM.Provider) {
	case "openai":
		if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
			errs = append(errs, ValidationError{
				Field:   "llm.api_key",
				Message: "llm api_key is required for openai provider unless base_url points to a compatible server",
			})
		}
	case "anthropic", "claude", "gemini":
		if c.LLM.APIKey == "" {
			errs = append(errs, ValidationError{
				Field:   "llm.api_key",
				Message: fmt.Sprintf("llm api_key is required for %s provider", c.LLM.Provider),
			})
		}
	case "":
		errs = append(errs, ValidationError{
			Field:   "llm.provider",
			Message: "llm provider is required",
		})
	default:
		errs = append(errs, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown llm provider %q", c.LLM.Provider),
		})
	}

	if c.LLM.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "llm.model",
			Message: "llm model is required",
		})
	}

	return errs
}

// validateDocStore validates document store configuration
func (c *Config) validateDocStore() ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(c.DocStore.Provider) {
	case "memory":
	case "elasticsearch", "es":
		if c.DocStore.Endpoint == "" {
			errs = append(errs, ValidationError{
				Field:   "docstore.endpoint",
				Message: "docstore endpoint is required for elasticsearch provider",
			})
		}
		if c.DocStore.Index == "" {
			errs = append(errs, ValidationError{
				Field:   "docstore.index",
				Message: "docstore index is required for elasticsearch provider",
			})
		}
	case "postgres":
		if c.DocStore.DSN == "" {
			errs = append(errs, ValidationError{
				Field:   "docstore.dsn",
				Message: "docstore dsn is required for postgres provider",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "docstore.provider",
			Message: fmt.Sprintf("unknown docstore provider %q", c.DocStore.Provider),
		})
	}

	return errs
}

// validateClassifier validates classifier configuration
func (c *Config) validateClassifier() ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(c.Classifier.Provider) {
	case "", "llm", "rule", "hybrid":
	default:
		errs = append(errs, ValidationError{
			Field:   "classifier.provider",
			Message: fmt.Sprintf("unknown classifier provider %q", c.Classifier.Provider),
		})
	}
	errs = append(errs, validateCompletion("classifier", CompletionConfig{
		Temperature: c.Classifier.Temperature,
		MaxTokens:   c.Classifier.MaxTokens,
	})...)
	if c.Classifier.CacheSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "classifier.cache_size",
			Message: fmt.Sprintf("classifier.cache_size must not be negative, got %d", c.Classifier.CacheSize),
		})
	}
	if c.Classifier.CacheTTLSeconds < 0 {
		errs = append(errs, ValidationError{
			Field:   "classifier.cache_ttl_seconds",
			Message: fmt.Sprintf("classifier.cache_ttl_seconds must not be negative, got %d", c.Classifier.CacheTTLSeconds),
		})
	}

	return errs
}

// validateRAG validates RAG configuration
func (c *Config) validateRAG() ValidationErrors {
	var errs ValidationErrors

	if c.RAG.TopK <= 0 {
		errs = append(errs, ValidationError{
			Field:   "rag.top_k",
			Message: fmt.Sprintf("rag.top_k must be positive, got %d", c.RAG.TopK),
		})
	}

	if c.RAG.TopK > MaxFetchLimit {
		errs = append(errs, ValidationError{
			Field:   "rag.top_k",
			Message: fmt.Sprintf("rag.top_k %d is too large (max: %d)", c.RAG.TopK, MaxFetchLimit),
		})
	}

	if c.RAG.FallbackLimit <= 0 || c.RAG.FallbackLimit > MaxFetchLimit {
		errs = append(errs, ValidationError{
			Field:   "rag.fallback_limit",
			Message: fmt.Sprintf("rag.fallback_limit must be in [1, %d], got %d", MaxFetchLimit, c.RAG.FallbackLimit),
		})
	}

	if c.RAG.MaxContextTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "rag.max_context_tokens",
			Message: fmt.Sprintf("rag.max_context_tokens must be non-negative, got %d", c.RAG.MaxContextTokens),
		})
	}

	errs = append(errs, validateCompletion("rag", c.RAG.CompletionConfig)...)

	return errs
}

// validateOrchestrator validates timeouts and failure policy
func (c *Config) validateOrchestrator() ValidationErrors {
	var errs ValidationErrors

	if c.Orchestrator.RequestTimeoutMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "orchestrator.request_timeout_ms",
			Message: fmt.Sprintf("orchestrator.request_timeout_ms must be non-negative, got %d", c.Orchestrator.RequestTimeoutMs),
		})
	}

	switch c.Orchestrator.FailurePolicy {
	case "", FailurePolicyStrict, FailurePolicyDegrade:
	default:
		errs = append(errs, ValidationError{
			Field:   "orchestrator.failure_policy",
			Message: fmt.Sprintf("orchestrator.failure_policy must be %q or %q, got %q", FailurePolicyStrict, FailurePolicyDegrade, c.Orchestrator.FailurePolicy),
		})
	}

	return errs
}

func validateCompletion(stage string, cc CompletionConfig) ValidationErrors {
	var errs ValidationErrors

	if cc.Temperature < 0 || cc.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   stage + ".temperature",
			Message: fmt.Sprintf("%s.temperature must be in [0, 2], got %.2f", stage, cc.Temperature),
		})
	}
	if cc.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   stage + ".max_tokens",
			Message: fmt.Sprintf("%s.max_tokens must be non-negative, got %d", stage, cc.MaxTokens),
		})
	}

	return errs
}
